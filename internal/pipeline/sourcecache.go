package pipeline

import (
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// sourceCache bounds how many file contents stay in memory while one run
// both hashes and extracts them, so large trees do not hold every file at
// once.
type sourceCache struct {
	entries *lru.Cache[string, []byte]
}

func newSourceCache(size int) *sourceCache {
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &sourceCache{entries: entries}
}

func (c *sourceCache) Read(path string) ([]byte, error) {
	if data, ok := c.entries.Get(path); ok {
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.entries.Add(path, data)
	return data, nil
}
