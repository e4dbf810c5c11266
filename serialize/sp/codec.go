package sp

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/haldag/haldag/utils"
)

// the short byte field codec shared by all the sync protocol messages;
// every variable length field is prefixed by its uint8 length,
// every list is prefixed by its uint16 size

func writeBytes(buf *bytes.Buffer, data []byte) {
	binary.Write(buf, binary.BigEndian, utils.Uint8Len(data))
	binary.Write(buf, binary.BigEndian, data)
}

func readBytes(data io.Reader) ([]byte, error) {
	var length uint8
	if err := binary.Read(data, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	result := make([]byte, length)
	if err := binary.Read(data, binary.BigEndian, result); err != nil {
		return nil, err
	}
	return result, nil
}

func writeBytesList(buf *bytes.Buffer, list [][]byte) {
	binary.Write(buf, binary.BigEndian, uint16(len(list)))
	for _, item := range list {
		writeBytes(buf, item)
	}
}

func readBytesList(data io.Reader) ([][]byte, error) {
	var size uint16
	if err := binary.Read(data, binary.BigEndian, &size); err != nil {
		return nil, err
	}

	var result [][]byte
	for i := uint16(0); i < size; i++ {
		item, err := readBytes(data)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}

// sortedUnique reports whether every item has the wanted length and
// the list is strictly ascending (no duplicates)
func sortedUnique(list [][]byte, wantLen int) bool {
	for i, item := range list {
		if len(item) != wantLen {
			return false
		}
		if i > 0 && bytes.Compare(list[i-1], item) >= 0 {
			return false
		}
	}
	return true
}

func containsBytes(list [][]byte, target []byte) bool {
	for _, item := range list {
		if bytes.Equal(item, target) {
			return true
		}
	}
	return false
}
