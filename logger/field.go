package logger

import (
	"strconv"
	"time"
)

// Field is a key/value pair appended to a log line.
type Field interface {
	Key() string
	String() string
}

// Fields are printed in order after the message.
type Fields []Field

type field struct {
	key   string
	value string
}

func (f field) Key() string    { return f.key }
func (f field) String() string { return f.value }

func StringField(key, value string) Field {
	return field{key: key, value: value}
}

func IntField(key string, value int) Field {
	return field{key: key, value: strconv.Itoa(value)}
}

// DurationField rounds value to the millisecond.
func DurationField(key string, value time.Duration) Field {
	return field{key: key, value: value.Round(time.Millisecond).String()}
}
