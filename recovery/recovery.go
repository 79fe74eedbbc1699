package recovery

// Strategy decides how parsing components react to malformed input.
type Strategy interface {
	OnError(err error, location Location) Action
}

// Location pinpoints where in the file an error was detected.
type Location struct {
	ByteOffset int64
	ObjectNum  int
	ObjectGen  int
	Component  string
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionFix
	ActionWarn
)
