package infobot

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	inventoryVersionLine       = "# Sphinx inventory version 2"
	inventoryCompressionMarker = "zlib"

	// Lines 2 and 3 are "# Project: X" and "# Version: Y"
	inventoryHeaderPrefixLen = 11

	inventoryChunkSize = 16 * 1024

	inventoryPythonModule = "py:module"
	inventoryStdDoc       = "std:doc"
	inventoryStdDomain    = "std"
	inventoryLocationName = "$"
	inventorySameName     = "-"
)

var (
	ErrInvalidFormatVersion     = errors.New("invalid inventory format version")
	ErrInvalidCompressionMarker = errors.New("inventory is not zlib compressed")
	ErrCorruptCompressedStream  = errors.New("corrupt compressed inventory stream")
)

var inventoryRecordPattern = regexp.MustCompile(
	`^(.+?)\s+(\S*:\S*)\s+(-?\d+)\s+(\S+)\s+(.*)`,
)

// InventoryRecord is a single decompressed line of an inventory.
type InventoryRecord struct {
	Name        string
	Directive   string
	Priority    int
	Location    string
	DisplayName string
}

// Domain returns the part of the directive before the first colon
func (r InventoryRecord) Domain() string {
	domain, _, _ := strings.Cut(r.Directive, ":")
	return domain
}

// Subdirective returns the part of the directive after the first colon
func (r InventoryRecord) Subdirective() string {
	_, sub, _ := strings.Cut(r.Directive, ":")
	return sub
}

// DocEntry is a resolved documentation key and its absolute URL.
type DocEntry struct {
	Key string `json:"key" yaml:"key"`
	URL string `json:"url" yaml:"url"`
}

// NamespaceStrip removes the given substrings from every key parsed
// from an inventory whose project name equals Project. Replacements
// are applied in order, so more specific namespaces should come first.
type NamespaceStrip struct {
	Project  string   `yaml:"project" json:"project"`
	Prefixes []string `yaml:"prefixes" json:"prefixes"`
}

func (n NamespaceStrip) apply(project string, key string) string {
	if n.Project == "" || n.Project != project {
		return key
	}
	for _, p := range n.Prefixes {
		if p == "" {
			continue
		}
		key = strings.ReplaceAll(key, p, "")
	}
	return key
}

// Inventory is the parsed name->URL table of a documentation set.
// Keys keep the position of their first insertion; overwriting a key
// only replaces its URL.
type Inventory struct {
	Project string
	Version string

	entries []DocEntry
	index   map[string]int
}

func newInventory(project, version string) *Inventory {
	return &Inventory{
		Project: project,
		Version: version,
		index:   map[string]int{},
	}
}

func (inv *Inventory) set(key, url string) {
	if i, ok := inv.index[key]; ok {
		inv.entries[i].URL = url
		return
	}
	inv.index[key] = len(inv.entries)
	inv.entries = append(inv.entries, DocEntry{Key: key, URL: url})
}

// Get returns the URL for the given key
func (inv *Inventory) Get(key string) (string, bool) {
	if inv == nil {
		return "", false
	}
	i, ok := inv.index[key]
	if !ok {
		return "", false
	}
	return inv.entries[i].URL, true
}

// Len returns the number of keys in the inventory
func (inv *Inventory) Len() int {
	if inv == nil {
		return 0
	}
	return len(inv.entries)
}

// Entries returns a copy of the inventory's entries, in insertion order
func (inv *Inventory) Entries() []DocEntry {
	if inv == nil {
		return nil
	}
	out := make([]DocEntry, len(inv.entries))
	copy(out, inv.entries)
	return out
}

// ParseInventory reads a Sphinx objects.inv blob and returns its entries,
// with locations joined to baseURL.
//
// The first four lines are a plain text header. Everything after is a
// single zlib stream of newline-delimited records. Records which don't
// match the record grammar are skipped. A trailing record with no
// terminating newline is discarded.
func ParseInventory(r io.Reader, baseURL string, strip NamespaceStrip) (*Inventory, error) {
	br := bufio.NewReader(r)

	versionLine, err := readHeaderLine(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormatVersion, err)
	}
	if strings.TrimRightFunc(versionLine, unicode.IsSpace) != inventoryVersionLine {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormatVersion, versionLine)
	}

	projectLine, _ := readHeaderLine(br)
	versionInfoLine, _ := readHeaderLine(br)
	inv := newInventory(
		headerValue(projectLine),
		headerValue(versionInfoLine),
	)

	marker, _ := readHeaderLine(br)
	if !strings.Contains(marker, inventoryCompressionMarker) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCompressionMarker, marker)
	}

	err = readCompressedLines(
		br, func(line string) {
			rec, ok := parseInventoryRecord(line)
			if !ok {
				return
			}
			inv.add(rec, baseURL, strip)
		},
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (inv *Inventory) add(rec InventoryRecord, baseURL string, strip NamespaceStrip) {
	if rec.Directive == inventoryPythonModule {
		// the first of a duplicated module entry is the correct one
		if _, exists := inv.index[rec.Name]; exists {
			return
		}
	}

	domain := rec.Domain()
	subdirective := rec.Subdirective()
	if rec.Directive == inventoryStdDoc {
		subdirective = "label"
	}

	location := rec.Location
	if strings.HasSuffix(location, inventoryLocationName) {
		location = strings.TrimSuffix(location, inventoryLocationName) + rec.Name
	}

	key := rec.DisplayName
	if key == inventorySameName {
		key = rec.Name
	}

	var prefix string
	if domain == inventoryStdDomain {
		prefix = subdirective + ":"
	}

	key = strip.apply(inv.Project, key)
	inv.set(prefix+key, joinDocURL(baseURL, location))
}

func parseInventoryRecord(line string) (InventoryRecord, bool) {
	m := inventoryRecordPattern.FindStringSubmatch(strings.TrimRightFunc(line, unicode.IsSpace))
	if m == nil {
		return InventoryRecord{}, false
	}
	// out of range priorities are treated like any other malformed line
	priority, err := strconv.Atoi(m[3])
	if err != nil {
		return InventoryRecord{}, false
	}
	return InventoryRecord{
		Name:        m[1],
		Directive:   m[2],
		Priority:    priority,
		Location:    m[4],
		DisplayName: m[5],
	}, true
}

// readCompressedLines decompresses everything remaining in r, in fixed
// size chunks, calling fn for each complete newline-terminated line.
func readCompressedLines(r io.Reader, fn func(line string)) error {
	// nothing after the header decompresses to nothing
	if br, ok := r.(*bufio.Reader); ok {
		if _, err := br.Peek(1); errors.Is(err, io.EOF) {
			return nil
		}
	}

	zr, err := zlib.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptCompressedStream, err)
	}
	defer func() {
		_ = zr.Close()
	}()

	var buf []byte
	chunk := make([]byte, inventoryChunkSize)
	for {
		n, readErr := zr.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				pos := bytes.IndexByte(buf, '\n')
				if pos == -1 {
					break
				}
				fn(string(buf[:pos]))
				buf = buf[pos+1:]
			}
		}
		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrCorruptCompressedStream, readErr)
	}
}

// readHeaderLine returns the next line, including its newline. A final
// line with no newline is returned as-is.
func readHeaderLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return line, err
	}
	return line, nil
}

func headerValue(line string) string {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	if len(line) <= inventoryHeaderPrefixLen {
		return ""
	}
	return line[inventoryHeaderPrefixLen:]
}

// joinDocURL joins a base URL and a location the way a filesystem path
// join would: an absolute location replaces the base entirely.
func joinDocURL(base, location string) string {
	switch {
	case strings.HasPrefix(location, "/"), base == "":
		return location
	case strings.HasSuffix(base, "/"):
		return base + location
	default:
		return base + "/" + location
	}
}
