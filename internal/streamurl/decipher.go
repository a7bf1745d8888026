package streamurl

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// Decipherer evaluates the player JS challenge functions: the signature
// scramble applied to ciphered format URLs and the n-parameter transform
// that gates full-speed playback.
type Decipherer struct {
	js []byte

	mu sync.Mutex
	vm *goja.Runtime
}

// NewDecipherer wraps a player JS body.
func NewDecipherer(js []byte) *Decipherer {
	return &Decipherer{js: js}
}

var (
	sigFuncNamePatterns = []*regexp.Regexp{
		// name=function(a){a=a.split("");...
		regexp.MustCompile(`([a-zA-Z0-9$_]+)\s*=\s*function\(\s*a\s*\)\s*\{\s*a\s*=\s*a\.split\(\s*""\s*\)`),
		// "signature" dispatch variants.
		regexp.MustCompile(`\.sig\|\|([a-zA-Z0-9$_]+)\(`),
	}
	nFuncNamePatterns = []*regexp.Regexp{
		// .get("n"))&&(b=name(b)
		regexp.MustCompile(`\.get\("n"\)\)\s*&&\s*\(b=([a-zA-Z0-9$_]+)\(`),
		// .get("n"))&&(b=arr[0](b)||name
		regexp.MustCompile(`\.get\("n"\)\)\s*&&\s*\(b=[a-zA-Z0-9$_]+\[\d+\]\([a-zA-Z0-9$_]+\).+?\|\|([a-zA-Z0-9$_]+)`),
	}
	// Helper object calls inside the signature function body: Xx.Yy(a,3)
	helperCallPattern = regexp.MustCompile(`;?([a-zA-Z0-9$_]+)\.[a-zA-Z0-9$_]+\(a,\d+\)`)
)

// DecipherSignature solves the 's' cipher parameter.
func (d *Decipherer) DecipherSignature(s string) (string, error) {
	name, err := firstMatch(d.js, sigFuncNamePatterns)
	if err != nil {
		return "", fmt.Errorf("signature function: %w", err)
	}
	fnSrc, err := d.extractFunction(name)
	if err != nil {
		return "", err
	}

	sources := []string{fnSrc}
	if m := helperCallPattern.FindStringSubmatch(fnSrc); m != nil {
		helperSrc, err := d.extractObject(m[1])
		if err != nil {
			return "", err
		}
		sources = []string{helperSrc, fnSrc}
	}
	return d.call(name, sources, s)
}

// TransformN solves the throttling 'n' parameter.
func (d *Decipherer) TransformN(n string) (string, error) {
	name, err := firstMatch(d.js, nFuncNamePatterns)
	if err != nil {
		return "", fmt.Errorf("n function: %w", err)
	}
	fnSrc, err := d.extractFunction(name)
	if err != nil {
		return "", err
	}
	return d.call(name, []string{fnSrc}, n)
}

// call runs the sources in the shared VM and invokes name(arg).
func (d *Decipherer) call(name string, sources []string, arg string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vm == nil {
		d.vm = goja.New()
	}
	for _, src := range sources {
		if _, err := d.vm.RunString(src); err != nil {
			return "", fmt.Errorf("player js eval: %w", err)
		}
	}
	var fn func(string) string
	if err := d.vm.ExportTo(d.vm.Get(name), &fn); err != nil {
		return "", fmt.Errorf("player js export %q: %w", name, err)
	}
	return fn(arg), nil
}

func firstMatch(js []byte, patterns []*regexp.Regexp) (string, error) {
	for _, re := range patterns {
		if m := re.FindSubmatch(js); m != nil {
			return string(m[1]), nil
		}
	}
	return "", errors.New("no known pattern matched")
}

// extractFunction returns the full source of the named function as an
// assignment statement, delimited by a JS-aware balanced scan.
func (d *Decipherer) extractFunction(name string) (string, error) {
	for _, def := range []string{
		name + "=function(",
		name + " = function(",
		"function " + name + "(",
	} {
		start := bytes.Index(d.js, []byte(def))
		if start < 0 {
			continue
		}
		end, err := scanJSBlock(d.js, start)
		if err != nil {
			return "", err
		}
		src := string(d.js[start:end])
		if strings.HasPrefix(src, "function ") {
			src = name + "=function" + src[strings.Index(src, "("):]
		}
		return src, nil
	}
	return "", fmt.Errorf("function %q not found in player js", name)
}

// extractObject returns the source of `var name={...}`.
func (d *Decipherer) extractObject(name string) (string, error) {
	for _, def := range []string{
		"var " + name + "={",
		"var " + name + " = {",
		name + "={",
	} {
		start := bytes.Index(d.js, []byte(def))
		if start < 0 {
			continue
		}
		end, err := scanJSBlock(d.js, start)
		if err != nil {
			return "", err
		}
		src := string(d.js[start:end])
		if !strings.HasPrefix(src, "var ") {
			src = "var " + src
		}
		return src, nil
	}
	return "", fmt.Errorf("helper object %q not found in player js", name)
}

// scanJSBlock finds the end of the brace block opening at or after
// start, honoring the three JS quote styles and escapes.
func scanJSBlock(js []byte, start int) (int, error) {
	open := bytes.IndexByte(js[start:], '{')
	if open < 0 {
		return 0, errors.New("no block after definition")
	}

	var strChar byte
	depth := 0
	for i := start + open; i < len(js); i++ {
		b := js[i]
		switch b {
		case '{':
			if strChar == 0 {
				depth++
			}
		case '}':
			if strChar == 0 {
				depth--
				if depth == 0 {
					return i + 1, nil
				}
			}
		case '`', '"', '\'':
			if i > 1 && js[i-1] == '\\' && js[i-2] != '\\' {
				continue
			}
			if strChar == 0 {
				strChar = b
			} else if strChar == b {
				strChar = 0
			}
		}
	}
	return 0, errors.New("unterminated block in player js")
}
