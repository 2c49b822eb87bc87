// Package tags reads and writes the newline-delimited player tag file that
// links the discovery and collection stages.
package tags

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"royale-meta/internal/domain"
)

// Read loads player tags from a flat file. Blank lines and comment lines
// ("# " prefix) are skipped; tags are normalized to carry the leading '#'.
func Read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tag file: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "# ") || line == "#" {
			continue
		}
		out = append(out, domain.NormalizeTag(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tag file: %w", err)
	}
	return out, nil
}

// Write saves discovered tags grouped by trophy bucket. Tags are stored
// without the '#' prefix; bucket headers are comments so Read round-trips.
func Write(path string, buckets domain.Buckets, tagsByBucket [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create tag file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	total := 0
	for _, bucket := range tagsByBucket {
		total += len(bucket)
	}
	fmt.Fprintf(w, "# Player tags discovered by crawler\n")
	fmt.Fprintf(w, "# Total: %d tags\n", total)

	for i, bucket := range buckets {
		if i >= len(tagsByBucket) {
			break
		}
		fmt.Fprintf(w, "\n# %s trophies (%d players)\n", bucket.Label(), len(tagsByBucket[i]))
		for _, tag := range tagsByBucket[i] {
			fmt.Fprintln(w, strings.TrimPrefix(tag, "#"))
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write tag file: %w", err)
	}
	return nil
}
