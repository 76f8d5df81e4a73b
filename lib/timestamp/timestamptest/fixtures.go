// Package timestamptest builds tiny media files carrying capture dates.
package timestamptest

import (
	"bytes"
	"encoding/binary"
)

type ifdEntry struct {
	tag   uint16
	value string // ASCII
	ifd   []ifdEntry
}

// TIFF builds a little-endian TIFF holding an IFD0 DateTime and, when
// original is set, an Exif sub-IFD with DateTimeOriginal.
func TIFF(dateTime, original string) []byte {
	var ifd0 []ifdEntry
	if dateTime != "" {
		ifd0 = append(ifd0, ifdEntry{tag: 0x0132, value: dateTime})
	}
	if original != "" {
		ifd0 = append(ifd0, ifdEntry{tag: 0x8769, ifd: []ifdEntry{{tag: 0x9003, value: original}}})
	}

	buf := &bytes.Buffer{}
	buf.WriteString("II")
	binary.Write(buf, binary.LittleEndian, uint16(42))
	binary.Write(buf, binary.LittleEndian, uint32(8))
	writeIFD(buf, ifd0)
	return buf.Bytes()
}

func writeIFD(buf *bytes.Buffer, entries []ifdEntry) {
	start := uint32(buf.Len())
	dataOffset := start + 2 + uint32(len(entries))*12 + 4

	var data bytes.Buffer
	var subIFDs []ifdEntry
	binary.Write(buf, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(buf, binary.LittleEndian, e.tag)
		if e.ifd != nil {
			binary.Write(buf, binary.LittleEndian, uint16(4)) // LONG
			binary.Write(buf, binary.LittleEndian, uint32(1))
			subIFDs = append(subIFDs, e)
			// Patched below once the data block size is known.
			binary.Write(buf, binary.LittleEndian, uint32(0))
			continue
		}
		ascii := e.value + "\x00"
		binary.Write(buf, binary.LittleEndian, uint16(2)) // ASCII
		binary.Write(buf, binary.LittleEndian, uint32(len(ascii)))
		binary.Write(buf, binary.LittleEndian, dataOffset+uint32(data.Len()))
		data.WriteString(ascii)
	}
	binary.Write(buf, binary.LittleEndian, uint32(0))
	buf.Write(data.Bytes())

	for _, sub := range subIFDs {
		offset := uint32(buf.Len())
		raw := buf.Bytes()
		for i := range entries {
			if entries[i].tag == sub.tag {
				pos := start + 2 + uint32(i)*12 + 8
				binary.LittleEndian.PutUint32(raw[pos:], offset)
			}
		}
		writeIFD(buf, sub.ifd)
	}
}

// MovieHeader builds a minimal moov/mvhd (version 0) file. creation counts
// seconds since 1904.
func MovieHeader(creation uint32) []byte {
	mvhd := &bytes.Buffer{}
	binary.Write(mvhd, binary.BigEndian, uint32(108))
	mvhd.WriteString("mvhd")
	binary.Write(mvhd, binary.BigEndian, uint32(0))    // version + flags
	binary.Write(mvhd, binary.BigEndian, creation)     // creation time
	binary.Write(mvhd, binary.BigEndian, creation)     // modification time
	binary.Write(mvhd, binary.BigEndian, uint32(1000)) // timescale
	binary.Write(mvhd, binary.BigEndian, uint32(0))    // duration
	binary.Write(mvhd, binary.BigEndian, uint32(0x00010000))
	binary.Write(mvhd, binary.BigEndian, uint16(0x0100))
	mvhd.Write(make([]byte, 2+8))
	matrix := []int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}
	binary.Write(mvhd, binary.BigEndian, matrix)
	mvhd.Write(make([]byte, 24))
	binary.Write(mvhd, binary.BigEndian, uint32(2))

	moov := &bytes.Buffer{}
	binary.Write(moov, binary.BigEndian, uint32(8+mvhd.Len()))
	moov.WriteString("moov")
	moov.Write(mvhd.Bytes())
	return moov.Bytes()
}
