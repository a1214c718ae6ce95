package builtin

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func computes a value from the literal arguments of a call.
type Func func(args []string) (any, error)

// Functions evaluates {{name(args)}} calls in step values.
type Functions struct {
	funcs map[string]Func
	warn  func(format string, args ...any)
}

// NewFunctions returns the default function set.
func NewFunctions() *Functions {
	f := &Functions{funcs: make(map[string]Func)}
	f.registerDefaults()
	return f
}

func (f *Functions) registerDefaults() {
	f.funcs["now"] = funcNow
	f.funcs["timestamp"] = funcTimestamp
	f.funcs["timestampMs"] = funcTimestampMs
	f.funcs["uuid"] = funcUUID
	f.funcs["random"] = funcRandom
	f.funcs["randomString"] = funcRandomString
	f.funcs["randomEmail"] = funcRandomEmail
	f.funcs["base64"] = funcBase64
	f.funcs["base64Decode"] = funcBase64Decode
	f.funcs["md5"] = funcMD5
	f.funcs["sha256"] = funcSHA256
	f.funcs["urlEncode"] = funcURLEncode
	f.funcs["urlDecode"] = funcURLDecode
	f.funcs["date"] = funcDate
	f.funcs["upper"] = funcUpper
	f.funcs["lower"] = funcLower
}

// Register adds or replaces a function.
func (f *Functions) Register(name string, fn Func) {
	f.funcs[name] = fn
}

// Names lists the registered functions, sorted.
func (f *Functions) Names() []string {
	names := make([]string, 0, len(f.funcs))
	for name := range f.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var funcCallPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// Call evaluates expr. It reports false when expr is not a call of a known
// function or the function rejects its arguments.
func (f *Functions) Call(expr string) (any, bool) {
	matches := funcCallPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if matches == nil {
		return nil, false
	}
	fn, ok := f.funcs[matches[1]]
	if !ok {
		return nil, false
	}

	var args []string
	if matches[2] != "" {
		args = parseArgs(matches[2])
	}
	v, err := fn(args)
	if err != nil {
		if f.warn != nil {
			f.warn("%s: %v", matches[1], err)
		}
		return nil, false
	}
	return v, true
}

// parseArgs splits on commas outside single or double quotes.
func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	var quote byte

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}
	return args
}

func intArg(args []string, i int, name string, fallback int) (int, error) {
	if len(args) <= i {
		return fallback, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%s argument %q is not a valid integer", name, args[i])
	}
	return v, nil
}

func firstArg(args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("missing argument")
	}
	return args[0], nil
}

func funcNow(_ []string) (any, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

func funcTimestamp(_ []string) (any, error) {
	return time.Now().Unix(), nil
}

func funcTimestampMs(_ []string) (any, error) {
	return time.Now().UnixMilli(), nil
}

func funcUUID(_ []string) (any, error) {
	return uuid.NewString(), nil
}

func funcRandom(args []string) (any, error) {
	lo, err := intArg(args, 0, "min", 0)
	if err != nil {
		return nil, err
	}
	hi, err := intArg(args, 1, "max", 100)
	if err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, fmt.Errorf("max %d is below min %d", hi, lo)
	}
	return rand.Intn(hi-lo+1) + lo, nil
}

func funcRandomString(args []string) (any, error) {
	length, err := intArg(args, 0, "length", 16)
	if err != nil {
		return nil, err
	}
	return randomString(length, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"), nil
}

func funcRandomEmail(_ []string) (any, error) {
	user := randomString(8, "abcdefghijklmnopqrstuvwxyz")
	domain := randomString(6, "abcdefghijklmnopqrstuvwxyz")
	return fmt.Sprintf("%s@%s.com", user, domain), nil
}

func funcBase64(args []string) (any, error) {
	s, err := firstArg(args)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString([]byte(s)), nil
}

func funcBase64Decode(args []string) (any, error) {
	s, err := firstArg(args)
	if err != nil {
		return nil, err
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return string(decoded), nil
}

func funcMD5(args []string) (any, error) {
	s, err := firstArg(args)
	if err != nil {
		return nil, err
	}
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:]), nil
}

func funcSHA256(args []string) (any, error) {
	s, err := firstArg(args)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:]), nil
}

func funcURLEncode(args []string) (any, error) {
	s, err := firstArg(args)
	if err != nil {
		return nil, err
	}
	return url.QueryEscape(s), nil
}

func funcURLDecode(args []string) (any, error) {
	s, err := firstArg(args)
	if err != nil {
		return nil, err
	}
	return url.QueryUnescape(s)
}

func funcDate(args []string) (any, error) {
	layout := "2006-01-02"
	if len(args) >= 1 {
		layout = args[0]
	}
	return time.Now().UTC().Format(layout), nil
}

func funcUpper(args []string) (any, error) {
	s, err := firstArg(args)
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(s), nil
}

func funcLower(args []string) (any, error) {
	s, err := firstArg(args)
	if err != nil {
		return nil, err
	}
	return strings.ToLower(s), nil
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
