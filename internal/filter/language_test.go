package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const englishText = `The city council met on Tuesday evening to discuss the new budget for public
schools and libraries. Several residents spoke about the importance of keeping the reading rooms
open during the summer, while others asked the members to invest more money in the parks.`

const germanText = `Der Stadtrat hat sich am Dienstagabend getroffen, um über den neuen Haushalt für
die öffentlichen Schulen und Bibliotheken zu sprechen. Mehrere Bürger wünschten sich, dass die
Lesesäle auch im Sommer geöffnet bleiben, und andere forderten mehr Geld für die Parks.`

func TestTrigramDetector(t *testing.T) {
	t.Parallel()

	d := NewTrigramDetector()
	assert.Equal(t, "en", d.Detect(`<html lang="en"><body><p>`+englishText+`</p></body></html>`))
	assert.Equal(t, "de", d.Detect(`<html lang="de"><body><p>`+germanText+`</p></body></html>`))
	assert.Empty(t, d.Detect(`<html><body><script>var x = 1;</script></body></html>`))
}

func TestVisibleTextDropsScripts(t *testing.T) {
	t.Parallel()

	got := visibleText("<html><head><style>p{}</style></head><body><p>one\n  two</p><script>alert(1)</script></body></html>")
	assert.Equal(t, "one two", got)
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
}
