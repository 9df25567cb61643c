package geo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WorldFileCandidates lists the sidecar paths checked for an image, in
// priority order: the three-letter form (.tfw for .tif), the extension with a
// trailing "w" (.tifw) and the generic .wld.
func WorldFileCandidates(imagePath string) []string {
	ext := filepath.Ext(imagePath)
	base := strings.TrimSuffix(imagePath, ext)
	if len(ext) < 2 {
		return []string{base + ".wld"}
	}

	var candidates []string
	name := ext[1:]
	if len(name) >= 2 {
		short := "." + name[:1] + name[len(name)-1:] + "w"
		candidates = append(candidates, base+short, base+strings.ToUpper(short))
	}
	candidates = append(candidates, base+ext+"w", base+".wld")
	return candidates
}

// FindWorldFile returns the first existing world-file sidecar for an image.
func FindWorldFile(imagePath string) (string, bool) {
	for _, p := range WorldFileCandidates(imagePath) {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

// ReadWorldFile parses an ESRI world file. World files store the centre of
// the top-left pixel; the returned transform addresses pixel corners.
func ReadWorldFile(path string) (Transform, error) {
	f, err := os.Open(path)
	if err != nil {
		return Transform{}, fmt.Errorf("failed to open world file: %w", err)
	}
	defer f.Close()

	var terms []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return Transform{}, fmt.Errorf("world file %s line %d: %w", path, len(terms)+1, err)
		}
		terms = append(terms, v)
	}
	if err := scanner.Err(); err != nil {
		return Transform{}, fmt.Errorf("failed to read world file: %w", err)
	}
	if len(terms) != 6 {
		return Transform{}, fmt.Errorf("world file %s: expected 6 terms, got %d", path, len(terms))
	}

	// Order on disk: A, D, B, E, C, F.
	t := Transform{A: terms[0], D: terms[1], B: terms[2], E: terms[3], C: terms[4], F: terms[5]}
	t.C -= (t.A + t.B) / 2
	t.F -= (t.D + t.E) / 2
	if err := t.Validate(); err != nil {
		return Transform{}, fmt.Errorf("world file %s: %w", path, err)
	}
	return t, nil
}

// WriteWorldFile writes the transform as an ESRI world file.
func WriteWorldFile(path string, t Transform) error {
	cx := t.C + (t.A+t.B)/2
	cy := t.F + (t.D+t.E)/2
	content := fmt.Sprintf("%.10f\n%.10f\n%.10f\n%.10f\n%.10f\n%.10f\n", t.A, t.D, t.B, t.E, cx, cy)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write world file: %w", err)
	}
	return nil
}
