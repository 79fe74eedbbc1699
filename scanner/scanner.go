package scanner

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"unicode"

	"github.com/teracodedev/pdfengine/recovery"
)

type TokenType int

const (
	TokenDict    TokenType = iota // '<<'
	TokenArray                    // '['
	TokenName                     // '/Name'
	TokenString                   // literal or hex string
	TokenNumber                   // numeric value
	TokenBoolean                  // true/false
	TokenNull                     // null
	TokenRef                      // indirect ref '5 0 R'
	TokenStream                   // stream payload
	TokenKeyword                  // other keywords (obj, endobj, >>, ], etc.)
)

type Token struct {
	Type  TokenType
	Str   string  // names and keywords
	Bytes []byte  // strings and stream payloads
	Int   int64   // integers and ref object numbers
	Float float64 // reals
	Bool  bool
	IsInt bool
	IsHex bool // hex string
	Gen   int  // ref generation numbers
	Pos   int64
}

type Scanner interface {
	Next() (Token, error)
	Position() int64
	SeekTo(offset int64) error
	SetNextStreamLength(n int64)
}

type Config struct {
	MaxStringLength int64
	MaxArrayDepth   int
	MaxDictDepth    int
	MaxStreamLength int64
	MaxStreamScan   int64
	WindowSize      int64
	Recovery        recovery.Strategy
}

type ReaderAt interface {
	ReadAt(p []byte, off int64) (n int, err error)
}

// pdfScanner incrementally buffers PDF data from a ReaderAt in fixed-size windows.
type pdfScanner struct {
	reader        ReaderAt
	data          []byte
	pos           int64
	cfg           Config
	nextStreamLen int64
	chunkSize     int64
	eof           bool
	arrayDepth    int
	dictDepth     int
	lastAction    recovery.Action
}

func New(r ReaderAt, cfg Config) Scanner {
	chunk := cfg.WindowSize
	if chunk <= 0 {
		chunk = 64 * 1024
	}
	return &pdfScanner{reader: r, cfg: cfg, nextStreamLen: -1, chunkSize: chunk}
}

func (s *pdfScanner) Position() int64 { return s.pos }

func (s *pdfScanner) SeekTo(offset int64) error {
	if offset < 0 {
		return errors.New("seek out of range")
	}
	if err := s.ensure(offset); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if offset > int64(len(s.data)) {
		return errors.New("seek out of range")
	}
	s.pos = offset
	return nil
}

func (s *pdfScanner) SetNextStreamLength(n int64) { s.nextStreamLen = n }

func (s *pdfScanner) Next() (Token, error) {
	if err := s.skipWSAndComments(); err != nil {
		if errors.Is(err, io.EOF) {
			return Token{}, io.EOF
		}
		return Token{}, err
	}
	if s.pos >= int64(len(s.data)) {
		return Token{}, io.EOF
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peekAhead(1) == '<' { // dictionary start
			s.pos += 2
			return s.emit(Token{Type: TokenDict, Pos: start})
		}
		return s.scanHexString()
	case '>':
		if s.peekAhead(1) == '>' {
			s.pos += 2
			return s.emit(Token{Type: TokenKeyword, Str: ">>", Pos: start})
		}
		s.pos++
		return s.emit(Token{Type: TokenKeyword, Str: string(c), Pos: start})
	case '[':
		s.pos++
		return s.emit(Token{Type: TokenArray, Pos: start})
	case ']':
		s.pos++
		return s.emit(Token{Type: TokenKeyword, Str: "]", Pos: start})
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if isDigitStart(c) {
		return s.scanNumberOrRef()
	}
	if isAlpha(c) {
		return s.scanKeyword()
	}
	// Fallback single char keyword
	s.pos++
	return s.emit(Token{Type: TokenKeyword, Str: string(c), Pos: start})
}

func (s *pdfScanner) skipWSAndComments() error {
	for {
		if s.pos >= int64(len(s.data)) {
			if err := s.ensure(s.pos); err != nil {
				return err
			}
		}
		if s.pos >= int64(len(s.data)) {
			return io.EOF
		}
		c := s.data[s.pos]
		// whitespace per PDF spec (space 0x20, tab, CR, LF, FF, null 0x00)
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' { // comment
			for {
				s.pos++
				if err := s.ensure(s.pos); err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				if s.pos >= int64(len(s.data)) {
					return io.EOF
				}
				if s.data[s.pos] == '\n' || s.data[s.pos] == '\r' {
					break
				}
			}
			continue
		}
		return nil
	}
}

func (s *pdfScanner) ensure(n int64) error {
	for int64(len(s.data)) <= n {
		if s.eof {
			return io.EOF
		}
		if err := s.loadMore(); err != nil {
			return err
		}
	}
	return nil
}

func (s *pdfScanner) loadMore() error {
	buf := make([]byte, s.chunkSize)
	off := int64(len(s.data))
	n, err := s.reader.ReadAt(buf, off)
	if n > 0 {
		s.data = append(s.data, buf[:n]...)
	}
	if err == io.EOF {
		s.eof = true
		return nil
	}
	if err != nil {
		return err
	}
	if n == 0 {
		s.eof = true
	}
	return nil
}

func isDigitStart(c byte) bool { return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') }
func isAlpha(c byte) bool      { return unicode.IsLetter(rune(c)) }

func (s *pdfScanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // skip '/'
	var out bytes.Buffer
	for {
		if err := s.ensure(s.pos); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Token{}, err
		}
		if s.pos >= int64(len(s.data)) {
			break
		}
		c := s.data[s.pos]
		if isDelimiter(c) {
			break
		}
		if c == '#' { // hex escape in name
			s.pos++
			a := s.hexNibble()
			b := s.hexNibble()
			out.WriteByte((a << 4) | b)
			continue
		}
		out.WriteByte(c)
		s.pos++
	}
	return s.emit(Token{Type: TokenName, Str: out.String(), Pos: start})
}

func (s *pdfScanner) hexNibble() byte {
	if s.pos >= int64(len(s.data)) {
		return 0
	}
	c := s.data[s.pos]
	s.pos++
	return fromHex(c)
}

func (s *pdfScanner) scanLiteralString() (Token, error) { // PDF 7.3.4.2
	start := s.pos
	s.pos++ // skip '('
	var buf bytes.Buffer
	depth := 1
	for {
		if err := s.ensure(s.pos); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Token{}, err
		}
		if s.pos >= int64(len(s.data)) {
			break
		}
		c := s.data[s.pos]
		if c == '\\' { // escape
			s.pos++
			if err := s.ensure(s.pos); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return Token{}, err
			}
			if s.pos >= int64(len(s.data)) {
				break
			}
			esc := s.data[s.pos]
			// Line continuation: backslash followed by EOL is ignored
			if esc == '\r' {
				s.pos++
				if err := s.ensure(s.pos); err == nil && s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
					s.pos++
				}
				continue
			}
			if esc == '\n' {
				s.pos++
				continue
			}
			// Octal escape up to 3 digits
			if esc >= '0' && esc <= '7' {
				val := int(esc - '0')
				s.pos++
				for k := 0; k < 2 && s.pos < int64(len(s.data)); k++ {
					if err := s.ensure(s.pos); err != nil {
						if errors.Is(err, io.EOF) {
							break
						}
						return Token{}, err
					}
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = (val << 3) + int(d-'0')
					s.pos++
				}
				buf.WriteByte(byte(val))
				continue
			}
			buf.WriteByte(translateEscape(esc))
			s.pos++
			continue
		}
		if c == '(' {
			depth++
			buf.WriteByte(c)
			s.pos++
			continue
		}
		if c == ')' {
			depth--
			if depth == 0 {
				s.pos++
				break
			}
			buf.WriteByte(c)
			s.pos++
			continue
		}
		buf.WriteByte(c)
		s.pos++
		if s.cfg.MaxStringLength > 0 && int64(buf.Len()) > s.cfg.MaxStringLength {
			return Token{}, s.recover(errors.New("literal string too long"), "literal")
		}
	}
	if depth != 0 {
		if err := s.recover(errors.New("unterminated literal string"), "literal"); err != nil {
			if s.lastAction != recovery.ActionFix {
				return Token{}, err
			}
		}
	}
	return s.emit(Token{Type: TokenString, Bytes: buf.Bytes(), Pos: start})
}

func (s *pdfScanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // skip '<'
	var hexbuf []byte
	closed := false
	for {
		if err := s.ensure(s.pos); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Token{}, err
		}
		if s.pos >= int64(len(s.data)) {
			break
		}
		c := s.data[s.pos]
		if c == '>' {
			s.pos++
			closed = true
			break
		}
		if isWhitespace(c) {
			s.pos++
			continue
		}
		hexbuf = append(hexbuf, c)
		s.pos++
	}
	if !closed {
		if err := s.recover(errors.New("unterminated hex string"), "hex"); err != nil {
			if s.lastAction != recovery.ActionFix {
				return Token{}, err
			}
		}
	}
	// Odd nibble count pads with 0
	if len(hexbuf)%2 == 1 {
		hexbuf = append(hexbuf, '0')
	}
	if s.cfg.MaxStringLength > 0 && int64(len(hexbuf)/2) > s.cfg.MaxStringLength {
		return Token{}, s.recover(errors.New("hex string too long"), "hex")
	}
	out := make([]byte, 0, len(hexbuf)/2)
	for i := 0; i < len(hexbuf); i += 2 {
		out = append(out, (fromHex(hexbuf[i])<<4)|fromHex(hexbuf[i+1]))
	}
	return s.emit(Token{Type: TokenString, Bytes: out, IsHex: true, Pos: start})
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

// scanStream consumes the stream payload following the 'stream' keyword,
// using the declared length when the caller supplied one and falling back
// to searching for 'endstream'.
func (s *pdfScanner) scanStream(start int64) (Token, error) {
	if err := s.ensure(s.pos); err != nil && !errors.Is(err, io.EOF) {
		return Token{}, err
	}
	// PDF 7.3.8: stream keyword must be followed by EOL before data
	if s.pos >= int64(len(s.data)) {
		return Token{}, s.recover(errors.New("stream missing EOL before data"), "stream")
	}
	if s.data[s.pos] == '\r' {
		s.pos++
		if err := s.ensure(s.pos); err == nil && s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
			s.pos++
		}
	} else if s.data[s.pos] == '\n' {
		s.pos++
	} else {
		if err := s.recover(errors.New("stream missing EOL before data"), "stream"); err != nil {
			if s.lastAction != recovery.ActionFix {
				return Token{}, err
			}
		}
	}
	dataStart := s.pos
	if s.nextStreamLen >= 0 {
		l := s.nextStreamLen
		if s.cfg.MaxStreamLength > 0 && l > s.cfg.MaxStreamLength {
			return Token{}, errors.New("stream too long")
		}
		if err := s.ensure(dataStart + l - 1); err != nil && !errors.Is(err, io.EOF) {
			return Token{}, err
		} else if errors.Is(err, io.EOF) {
			if recErr := s.recover(errors.New("stream ended before declared length"), "stream"); recErr != nil {
				if s.lastAction != recovery.ActionFix {
					return Token{}, recErr
				}
			}
		}
		if dataStart+l > int64(len(s.data)) {
			l = int64(len(s.data)) - dataStart
		}
		end := dataStart + l
		payload := append([]byte(nil), s.data[dataStart:end]...)
		// consume optional EOL after data
		s.pos = end
		if err := s.ensure(s.pos); err != nil && !errors.Is(err, io.EOF) {
			return Token{}, err
		}
		if s.pos < int64(len(s.data)) {
			if s.data[s.pos] == '\r' {
				s.pos++
				if err := s.ensure(s.pos); err == nil && s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
					s.pos++
				}
			} else if s.data[s.pos] == '\n' {
				s.pos++
			}
		}
		// expect 'endstream'
		needle := []byte("endstream")
		if s.pos+int64(len(needle)) <= int64(len(s.data)) && bytes.Equal(s.data[s.pos:s.pos+int64(len(needle))], needle) {
			s.pos += int64(len(needle))
		} else {
			// fallback: search forward
			idx := bytes.Index(s.data[s.pos:], needle)
			if idx >= 0 {
				s.pos += int64(idx + len(needle))
			}
		}
		s.nextStreamLen = -1
		return s.emit(Token{Type: TokenStream, Bytes: payload, Pos: start})
	}
	needle := []byte("endstream")
	idx := int64(-1)
	for i := dataStart; ; i++ {
		if err := s.ensure(i + int64(len(needle)) - 1); err != nil && !errors.Is(err, io.EOF) {
			return Token{}, err
		}
		if i+int64(len(needle)) > int64(len(s.data)) {
			break
		}
		if s.cfg.MaxStreamScan > 0 && i-dataStart > s.cfg.MaxStreamScan {
			if recErr := s.recover(errors.New("endstream not found within scan limit"), "stream"); recErr != nil && s.lastAction != recovery.ActionFix {
				return Token{}, recErr
			}
			break
		}
		if s.data[i] != 'e' {
			continue
		}
		prevOK := i == dataStart || isWhitespace(s.data[i-1])
		match := bytes.Equal(s.data[i:i+int64(len(needle))], needle)
		followOK := i+int64(len(needle)) >= int64(len(s.data)) || isDelimiter(s.data[i+int64(len(needle))])
		if match && prevOK && followOK {
			idx = i
			break
		}
		if s.cfg.MaxStreamLength > 0 && i-dataStart > s.cfg.MaxStreamLength {
			return Token{}, s.recover(errors.New("stream too long"), "stream")
		}
	}
	if idx < 0 {
		payload := append([]byte(nil), s.data[dataStart:]...)
		if s.cfg.MaxStreamLength > 0 && int64(len(payload)) > s.cfg.MaxStreamLength {
			return Token{}, s.recover(errors.New("stream too long"), "stream")
		}
		s.pos = int64(len(s.data))
		return s.emit(Token{Type: TokenStream, Bytes: payload, Pos: start})
	}
	// Trim EOL before marker
	end := idx
	if end > dataStart && s.data[end-1] == '\n' {
		end--
	}
	if end > dataStart && s.data[end-1] == '\r' {
		end--
	}
	payload := append([]byte(nil), s.data[dataStart:end]...)
	if s.cfg.MaxStreamLength > 0 && int64(len(payload)) > s.cfg.MaxStreamLength {
		return Token{}, s.recover(errors.New("stream too long"), "stream")
	}
	s.pos = idx + int64(len(needle))
	return s.emit(Token{Type: TokenStream, Bytes: payload, Pos: start})
}

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	default:
		return isWhitespace(c)
	}
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		return c
	}
}

func (s *pdfScanner) peekAhead(n int64) byte {
	if err := s.ensure(s.pos + n); err != nil {
		return 0
	}
	if s.pos+n >= int64(len(s.data)) {
		return 0
	}
	return s.data[s.pos+n]
}

func (s *pdfScanner) scanKeyword() (Token, error) {
	start := s.pos
	var buf bytes.Buffer
	for {
		if err := s.ensure(s.pos); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Token{}, err
		}
		if s.pos >= int64(len(s.data)) {
			break
		}
		c := s.data[s.pos]
		if isDelimiter(c) {
			break
		}
		buf.WriteByte(c)
		s.pos++
	}
	kw := buf.String()
	switch kw {
	case "true", "false":
		return Token{Type: TokenBoolean, Bool: kw == "true", Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Pos: start}, nil
	case "stream":
		return s.scanStream(start)
	default:
		return Token{Type: TokenKeyword, Str: kw, Pos: start}, nil
	}
}

func (s *pdfScanner) scanNumberOrRef() (Token, error) {
	start := s.pos
	num1Str := s.scanNumberString()
	if num1Str == "" {
		return Token{}, errors.New("invalid number")
	}

	s.skipWSAndComments()
	secondStart := s.pos
	num2Str := s.scanNumberString()
	if num2Str != "" { // possible ref
		s.skipWSAndComments()
		if s.pos < int64(len(s.data)) && s.data[s.pos] == 'R' && isDelimiter(s.peekAhead(1)) {
			s.pos++
			n1, _ := strconv.Atoi(num1Str)
			n2, _ := strconv.Atoi(num2Str)
			return Token{Type: TokenRef, Int: int64(n1), Gen: n2, IsInt: true, Pos: start}, nil
		}
	}
	// not a ref; revert if we consumed a second number
	if num2Str != "" {
		s.pos = secondStart
	}
	if i, err := strconv.ParseInt(num1Str, 10, 64); err == nil {
		return s.emit(Token{Type: TokenNumber, Int: i, IsInt: true, Pos: start})
	}
	f, _ := strconv.ParseFloat(num1Str, 64)
	return s.emit(Token{Type: TokenNumber, Float: f, Pos: start})
}

func (s *pdfScanner) scanNumberString() string {
	start := s.pos
	var buf bytes.Buffer
	seenDigit := false
	for {
		if err := s.ensure(s.pos); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return ""
		}
		if s.pos >= int64(len(s.data)) {
			break
		}
		c := s.data[s.pos]
		if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			buf.WriteByte(c)
			if c >= '0' && c <= '9' {
				seenDigit = true
			}
			s.pos++
			continue
		}
		break
	}
	if !seenDigit {
		s.pos = start
		return ""
	}
	return buf.String()
}

func (s *pdfScanner) recover(err error, loc string) error {
	s.lastAction = recovery.ActionFail
	if s.cfg.Recovery == nil {
		return err
	}
	action := s.cfg.Recovery.OnError(err, recovery.Location{
		ByteOffset: s.pos,
		Component:  "scanner:" + loc,
	})
	s.lastAction = action
	switch action {
	case recovery.ActionSkip, recovery.ActionFix:
		return nil
	default:
		return err
	}
}

func (s *pdfScanner) emit(tok Token) (Token, error) {
	switch tok.Type {
	case TokenArray:
		s.arrayDepth++
		if s.cfg.MaxArrayDepth > 0 && s.arrayDepth > s.cfg.MaxArrayDepth {
			return Token{}, s.recover(errors.New("array depth exceeded"), "array")
		}
	case TokenDict:
		s.dictDepth++
		if s.cfg.MaxDictDepth > 0 && s.dictDepth > s.cfg.MaxDictDepth {
			return Token{}, s.recover(errors.New("dict depth exceeded"), "dict")
		}
	case TokenKeyword:
		if tok.Str == "]" && s.arrayDepth > 0 {
			s.arrayDepth--
		}
		if tok.Str == ">>" && s.dictDepth > 0 {
			s.dictDepth--
		}
	}
	return tok, nil
}
