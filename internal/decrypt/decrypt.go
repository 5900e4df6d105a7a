// Package decrypt recovers the per-chapter image-URL payload from a
// manhuagui chapter page. The page embeds the payload inside a minified
// "packer" script of the shape:
//
//	...}('<function>',<a>,<c>,'<compressed>'...)
//
// Decrypt is a pure function: no I/O, no concurrency, deterministic on its
// input. It is the direct Go transcription of the original Rust
// decrypt.rs, ported algorithm-for-algorithm rather than line-for-line
// Rust-to-Go.
package decrypt

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/lanyeeee/manhuagui-downloader/internal/lzstring"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// packerRe extracts the packer's four arguments. It deliberately mirrors
// the Rust regex exactly, including its "last match wins" greediness: `.*`
// is greedy, so on HTML with more than one packer-shaped block only the
// final one is captured. (?s) makes `.` match newlines, since the regex is
// applied to the whole HTML document.
var packerRe = regexp.MustCompile(`(?s)^.*\}\('(.*)',(\d*),(\d*),'([\w|+/=]*)'.*$`)

// jsonArgRe extracts the JSON object literal passed to the rewritten
// function call.
var jsonArgRe = regexp.MustCompile(`(?s)^.*\((\{.*\})\).*$`)

// identRe matches maximal identifier tokens; everything else is a
// separator copied through unchanged.
var identRe = regexp.MustCompile(`\b\w+\b`)

const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Decrypt recovers the DecryptedPayload embedded in a chapter page's HTML.
func Decrypt(html string) (*model.DecryptedPayload, error) {
	function, a, c, data, err := extract(html)
	if err != nil {
		return nil, err
	}

	dict := buildDict(a, c, data)

	js, err := rewrite(function, dict)
	if err != nil {
		return nil, err
	}

	return extractPayload(js)
}

func extract(html string) (function string, a, c int, data []string, err error) {
	m := packerRe.FindStringSubmatch(html)
	if m == nil {
		return "", 0, 0, nil, wrap(KindShape, nil)
	}
	function = m[1]

	a, aerr := strconv.Atoi(m[2])
	if aerr != nil {
		return "", 0, 0, nil, wrap(KindShape, aerr)
	}
	c, cerr := strconv.Atoi(m[3])
	if cerr != nil {
		return "", 0, 0, nil, wrap(KindShape, cerr)
	}
	compressed := m[4]

	units := lzstring.DecompressFromBase64(compressed)
	if len(units) == 0 {
		return "", 0, 0, nil, wrap(KindLZ, nil)
	}

	decompressed, ok := lzstring.Uint16ToString(units)
	if !ok {
		return "", 0, 0, nil, wrap(KindUTF16, nil)
	}

	data = strings.Split(decompressed, "|")
	return function, a, c, data, nil
}

// buildDict builds the substitution dictionary: for every k in 0..c, the
// base-a encoded key maps to data[k], or to the key itself if data[k] is
// empty.
func buildDict(a, c int, data []string) map[string]string {
	dict := make(map[string]string, c)
	for k := c - 1; k >= 0; k-- {
		key := enc(k, a)
		value := key
		if k < len(data) && data[k] != "" {
			value = data[k]
		}
		dict[key] = value
	}
	return dict
}

// enc is the packer's base-a token-naming scheme.
func enc(c, a int) string {
	prefix := ""
	if c >= a {
		prefix = enc(c/a, a)
	}
	var suffix string
	if c%a > 35 {
		suffix = string(rune(c%a + 29))
	} else {
		suffix = tr(c%a, 36, a)
	}
	return prefix + suffix
}

func tr(v, num, a int) string {
	s := itr(v, num, a)
	if s == "" {
		return "0"
	}
	return s
}

func itr(v, num, a int) string {
	if v <= 0 {
		return ""
	}
	return itr(v/num, num, a) + string(base62Alphabet[v%a])
}

// rewrite segments function into identifier tokens and separators,
// substituting each identifier found in dict.
func rewrite(function string, dict map[string]string) (string, error) {
	matches := identRe.FindAllStringIndex(function, -1)

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(function[last:m[0]])
		token := function[m[0]:m[1]]
		if v, ok := dict[token]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(token)
		}
		last = m[1]
	}
	b.WriteString(function[last:])
	return b.String(), nil
}

func extractPayload(js string) (*model.DecryptedPayload, error) {
	m := jsonArgRe.FindStringSubmatch(js)
	if m == nil {
		return nil, wrap(KindJSON, nil)
	}

	var payload model.DecryptedPayload
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return nil, wrap(KindJSON, err)
	}
	return &payload, nil
}
