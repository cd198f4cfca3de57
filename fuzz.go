// +build gofuzz

package psd

import "bytes"

// Fuzz drives the full read path: header through layer tree through
// composite image. A malformed input should come back as an error, never a
// panic.
func Fuzz(data []byte) int {
	doc, err := Read(bytes.NewReader(data), nil)
	if err != nil {
		return 0
	}
	if doc == nil {
		panic("nil document with nil error")
	}

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		if img != nil {
			panic("img != nil on error")
		}
		return 0
	}
	return 1
}
