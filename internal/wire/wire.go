// Package wire implements the byte layout of the gophdrop protocol.
//
// Every request starts with a 5-byte command tag (four ASCII characters and a
// zero byte). Variable-length fields are a big-endian uint32 length followed
// by that many raw bytes. File payloads are announced by a big-endian uint64
// size and then streamed unframed. A list response is a uint32 count followed
// by that many length-prefixed names.
//
// The package does no I/O of its own: it reads and writes through the
// Sender and Receiver interfaces, which transport.Channel satisfies.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// TagSize is the on-wire size of a command tag.
	TagSize = 5

	lengthSize = 4
	sizeSize   = 8
	countSize  = 4
)

// Field limits enforced by receivers before any allocation.
const (
	MaxPayloadSize    = 10 * 1024 * 1024
	MaxFilenameSize   = 256
	MaxCredentialSize = 1024
	MaxListEntries    = 64 * 1024
)

// Feedback strings carried in create-user, login and logout responses.
const (
	FeedbackUserCreated      = "User Created"
	FeedbackCreateUserFailed = "Create user failed"
	FeedbackLoginSuccessful  = "Login successful"
	FeedbackLoginFailed      = "Login failed"
	FeedbackLoggedOut        = "Logged out successfully"
)

var (
	// ErrUnknownCommand means the 5 tag bytes are not a recognised command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrFieldTooLarge means a declared length exceeds the receiver's limit.
	ErrFieldTooLarge = errors.New("field too large")
	// ErrTooManyEntries means a list count exceeds MaxListEntries.
	ErrTooManyEntries = errors.New("too many list entries")
	// ErrEmptyField means a field that must carry data has length zero.
	ErrEmptyField = errors.New("empty field")
)

// Sender writes all of b or fails.
type Sender interface {
	SendExact(b []byte) error
}

// Receiver reads exactly n bytes or fails.
type Receiver interface {
	RecvExact(n int) ([]byte, error)
}

// Tag identifies a command.
type Tag [4]byte

var (
	TagUpload     = Tag{'s', 'e', 'n', 'd'}
	TagDownload   = Tag{'g', 'e', 't', '.'}
	TagCreateUser = Tag{'c', 'r', 't', 'e'}
	TagLogin      = Tag{'l', 'g', 'i', 'n'}
	TagLogout     = Tag{'l', 'g', 'o', 'u'}
	TagList       = Tag{'l', 'i', 's', 't'}
)

var knownTags = map[Tag]struct{}{
	TagUpload:     {},
	TagDownload:   {},
	TagCreateUser: {},
	TagLogin:      {},
	TagLogout:     {},
	TagList:       {},
}

func (t Tag) String() string { return string(t[:]) }

// Bytes returns the 5-byte wire form of t.
func (t Tag) Bytes() []byte {
	return []byte{t[0], t[1], t[2], t[3], 0}
}

// ParseTag decodes a 5-byte wire tag. The result is returned even for unknown
// tags so callers can log it; err is ErrUnknownCommand in that case.
func ParseTag(b []byte) (Tag, error) {
	var t Tag
	if len(b) != TagSize {
		return t, fmt.Errorf("%w: tag length %d", ErrUnknownCommand, len(b))
	}
	copy(t[:], b[:4])
	if b[4] != 0 {
		return t, fmt.Errorf("%w: %q not terminated", ErrUnknownCommand, b)
	}
	if _, ok := knownTags[t]; !ok {
		return t, fmt.Errorf("%w: %q", ErrUnknownCommand, t.String())
	}
	return t, nil
}

// WriteTag sends the command tag.
func WriteTag(s Sender, t Tag) error {
	return s.SendExact(t.Bytes())
}

// ReadTag receives and parses a command tag.
func ReadTag(r Receiver) (Tag, error) {
	b, err := r.RecvExact(TagSize)
	if err != nil {
		return Tag{}, err
	}
	return ParseTag(b)
}

// AppendBytes appends the length-prefixed form of b to dst.
func AppendBytes(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

// WriteBytes sends b as a length-prefixed field in a single write.
func WriteBytes(s Sender, b []byte) error {
	if uint64(len(b)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: %d bytes", ErrFieldTooLarge, len(b))
	}
	return s.SendExact(AppendBytes(make([]byte, 0, lengthSize+len(b)), b))
}

// WriteString sends s as a length-prefixed field.
func WriteString(snd Sender, s string) error {
	return WriteBytes(snd, []byte(s))
}

// ReadBytes receives a length-prefixed field whose declared length must not
// exceed max. The length is checked before the payload buffer is allocated.
func ReadBytes(r Receiver, max uint32) ([]byte, error) {
	hdr, err := r.RecvExact(lengthSize)
	if err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr)
	if n > max {
		return nil, fmt.Errorf("%w: declared %d, limit %d", ErrFieldTooLarge, n, max)
	}
	if n == 0 {
		return []byte{}, nil
	}
	return r.RecvExact(int(n))
}

// ReadString is ReadBytes returning a string.
func ReadString(r Receiver, max uint32) (string, error) {
	b, err := ReadBytes(r, max)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadFilename reads a filename field. Names must be non-empty and shorter
// than MaxFilenameSize bytes.
func ReadFilename(r Receiver) (string, error) {
	name, err := ReadString(r, MaxFilenameSize-1)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("%w: filename", ErrEmptyField)
	}
	return name, nil
}

// WriteFileSize sends the 8-byte size header that precedes a file payload.
func WriteFileSize(s Sender, size uint64) error {
	return s.SendExact(binary.BigEndian.AppendUint64(make([]byte, 0, sizeSize), size))
}

// ReadFileSize receives the 8-byte size header.
func ReadFileSize(r Receiver) (uint64, error) {
	b, err := r.RecvExact(sizeSize)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// WriteList sends a count followed by each name as a length-prefixed field.
func WriteList(s Sender, names []string) error {
	if len(names) > MaxListEntries {
		return fmt.Errorf("%w: %d", ErrTooManyEntries, len(names))
	}
	buf := binary.BigEndian.AppendUint32(make([]byte, 0, countSize), uint32(len(names)))
	for _, n := range names {
		buf = AppendBytes(buf, []byte(n))
	}
	return s.SendExact(buf)
}

// ReadList receives a list response. Each name obeys the same limit as
// ReadFilename.
func ReadList(r Receiver) ([]string, error) {
	b, err := r.RecvExact(countSize)
	if err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(b)
	if n > MaxListEntries {
		return nil, fmt.Errorf("%w: %d", ErrTooManyEntries, n)
	}

	names := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		name, err := ReadString(r, MaxFilenameSize-1)
		if err != nil {
			return nil, fmt.Errorf("list entry %d: %w", i, err)
		}
		names = append(names, name)
	}
	return names, nil
}
