package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// HashLength is the byte length of unit and ball hashes
	HashLength = sha256.Size

	timeFormat = "2006/01/02 15:04:05"
)

// Hash returns the sha256 sum of data
func Hash(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// ToHex returns the upper case hexadecimal encoding string
func ToHex(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// FromHex returns the bytes represented by the hexadecimal string s
func FromHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// AccessCheck checks whether the file or directory exists
func AccessCheck(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("Not found %s or permision denied", err)
	}
	return nil
}

// ParseIPPort parses an IP:Port format string
func ParseIPPort(ipPort string) (net.IP, int) {
	s := strings.Split(ipPort, ":")
	if len(s) != 2 {
		return nil, 0
	}

	ip := net.ParseIP(s[0])
	if ip == nil || ip.To4() == nil {
		return nil, 0
	}

	port, err := strconv.Atoi(s[1])
	if err != nil || port <= 0 || port > 65535 {
		return nil, 0
	}

	return ip, port
}

// Uint8Len returns bytes length in uint8 type
func Uint8Len(data []byte) uint8 {
	return uint8(len(data))
}

// Uint16Len returns bytes length in uint16 type
func Uint16Len(data []byte) uint16 {
	return uint16(len(data))
}

// Uint32Len returns bytes length in uint32 type
func Uint32Len(data []byte) uint32 {
	return uint32(len(data))
}

// TimeToString returns a textual representation of the time;
// it only accepts int64 or time.Time type
func TimeToString(t interface{}) string {
	if int64T, ok := t.(int64); ok {
		return time.Unix(int64T, 0).Format(timeFormat)
	}

	if timeT, ok := t.(time.Time); ok {
		return timeT.Format(timeFormat)
	}

	return fmt.Sprintf("(invalid time %v)", t)
}
