// Package hostname implements the ProDOS/HFS file-type preservation scheme
// the CLI layer uses when a ShrinkIt entry is extracted to a host filesystem
// that can't carry ProDOS attributes directly (spec.md §6, grounded on
// original_source/nulib2/Filename.c).
package hostname

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
	"github.com/bgrewell/nufx-kit/pkg/record"
)

const (
	preserveIndic   = '#'
	extDelim        = '.'
	resourceFlag    = 'r'
	diskImageFlag   = 'i'
	maxExtLen       = 4
	foreignIndic    = '%'
	resourceSuffix  = "_rsrc_"
)

// fileTypeNames is ProDOS's 256-entry file type name table; entries that
// have no short name fall back to a "$XX" hex form, matching nulib2's
// gFileTypeNames.
var fileTypeNames = [256]string{
	"NON", "BAD", "PCD", "PTX", "TXT", "PDA", "BIN", "FNT",
	"FOT", "BA3", "DA3", "WPF", "SOS", "$0D", "$0E", "DIR",
	"RPD", "RPI", "AFD", "AFM", "AFR", "SCL", "PFS", "$17",
	"$18", "ADB", "AWP", "ASP", "$1C", "$1D", "$1E", "$1F",
	"TDM", "$21", "$22", "$23", "$24", "$25", "$26", "$27",
	"$28", "$29", "8SC", "8OB", "8IC", "8LD", "P8C", "$2F",
	"$30", "$31", "$32", "$33", "$34", "$35", "$36", "$37",
	"$38", "$39", "$3A", "$3B", "$3C", "$3D", "$3E", "$3F",
	"DIC", "OCR", "FTD", "$43", "$44", "$45", "$46", "$47",
	"$48", "$49", "$4A", "$4B", "$4C", "$4D", "$4E", "$4F",
	"GWP", "GSS", "GDB", "DRW", "GDP", "HMD", "EDU", "STN",
	"HLP", "COM", "CFG", "ANM", "MUM", "ENT", "DVU", "FIN",
	"$60", "$61", "$62", "$63", "$64", "$65", "$66", "$67",
	"$68", "$69", "$6A", "BIO", "$6C", "TDR", "PRE", "HDV",
	"$70", "$71", "$72", "$73", "$74", "$75", "$76", "$77",
	"$78", "$79", "$7A", "$7B", "$7C", "$7D", "$7E", "$7F",
	"$80", "$81", "$82", "$83", "$84", "$85", "$86", "$87",
	"$88", "$89", "$8A", "$8B", "$8C", "$8D", "$8E", "$8F",
	"$90", "$91", "$92", "$93", "$94", "$95", "$96", "$97",
	"$98", "$99", "$9A", "$9B", "$9C", "$9D", "$9E", "$9F",
	"WP ", "$A1", "$A2", "$A3", "$A4", "$A5", "$A6", "$A7",
	"$A8", "$A9", "$AA", "GSB", "TDF", "BDF", "$AE", "$AF",
	"SRC", "OBJ", "LIB", "S16", "RTL", "EXE", "PIF", "TIF",
	"NDA", "CDA", "TOL", "DVR", "LDF", "FST", "$BE", "DOC",
	"PNT", "PIC", "ANI", "PAL", "$C4", "OOG", "SCR", "CDV",
	"FON", "FND", "ICN", "$CB", "$CC", "$CD", "$CE", "$CF",
	"$D0", "$D1", "$D2", "$D3", "$D4", "MUS", "INS", "MDI",
	"SND", "$D9", "$DA", "DBM", "$DC", "DDD", "$DE", "$DF",
	"LBR", "$E1", "ATK", "$E3", "$E4", "$E5", "$E6", "$E7",
	"$E8", "$E9", "$EA", "$EB", "$EC", "$ED", "R16", "PAS",
	"CMD", "$F1", "$F2", "$F3", "$F4", "$F5", "$F6", "$F7",
	"$F8", "OS ", "INT", "IVR", "BAS", "VAR", "REL", "SYS",
}

type recognizedExtension struct {
	label    string
	fileType uint32
	auxType  uint32
}

// recognizedExtensions supplements the ProDOS type table with extensions
// that carry an unambiguous meaning of their own, per nulib2's
// gRecognizedExtensions.
var recognizedExtensions = []recognizedExtension{
	{"ASM", 0xb0, 0x0003},
	{"C", 0xb0, 0x000a},
	{"H", 0xb0, 0x000a},
	{"BNY", 0xe0, 0x8000},
	{"BQY", 0xe0, 0x8000},
	{"BXY", 0xe0, 0x8000},
	{"BSE", 0xe0, 0x8000},
	{"SEA", 0xb3, 0xdb07},
	{"GIF", 0xc0, 0x8006},
	{"JPG", 0x06, 0x0000},
	{"JPEG", 0x06, 0x0000},
	{"SHK", 0xe0, 0x8002},
}

// FileTypeName returns the three-letter ProDOS name for fileType, or
// "???" if out of range.
func FileTypeName(fileType uint32) string {
	if fileType < uint32(len(fileTypeNames)) {
		return fileTypeNames[fileType]
	}
	return "???"
}

// AddPreservationString appends a "#TTXXXX[r|i][.EXT]" token (or the
// 16-digit HFS form when either value overflows a byte/uint16) to name,
// per AddPreservationString. extended enables the ".EXT" hint lookup.
func AddPreservationString(name string, fileType, auxType uint32, kind record.ThreadKind, extended bool) string {
	var tok string
	if fileType < 0x100 && auxType < 0x10000 {
		tok = fmt.Sprintf("%c%02X%04X", preserveIndic, fileType, auxType)
	} else {
		tok = fmt.Sprintf("%c%08X%08X", preserveIndic, fileType, auxType)
	}

	switch kind {
	case record.KindRsrcFork:
		tok += string(resourceFlag)
	case record.KindDiskImage:
		tok += string(diskImageFlag)
	}

	if extended && fileType != 0x04 {
		if ext := extensionHint(name, fileType); ext != "" {
			tok += string(extDelim) + ext
		}
	}

	return name + tok
}

// extensionHint picks the ".EXT" suffix AddPreservationString should add:
// the file's existing extension (without its dot) if it's short,
// non-numeric, and '#'-free, or no hint if it fails those checks; a name
// with no extension gets a name derived from the ProDOS type table.
func extensionHint(name string, fileType uint32) string {
	if ext := FindExtension(name); ext != "" {
		ext = ext[1:] // drop the leading '.'; the caller adds its own
		if len(ext) <= maxExtLen && !isAllDigits(ext) && !strings.ContainsRune(ext, preserveIndic) {
			return ext
		}
		return ""
	}
	if fileType == 0 {
		return ""
	}
	candidate := FileTypeName(fileType)
	if candidate == "" || candidate[0] == '?' || candidate[0] == '$' {
		return ""
	}
	return candidate
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

// ExtractPreservationString looks for a trailing "#..." preservation token
// on name and, if found and well-formed, returns the stripped name plus
// the decoded type information. ok is false if no valid token is present,
// in which case name is returned unmodified.
func ExtractPreservationString(name string) (stripped string, fileType, auxType uint32, kind record.ThreadKind, ok bool) {
	idx := strings.LastIndexByte(name, preserveIndic)
	if idx < 0 {
		return name, 0, 0, record.KindDataFork, false
	}

	rest := name[idx+1:]
	digitCount := 0
	for digitCount < len(rest) && isHexDigit(rest[digitCount]) {
		digitCount++
	}

	var ft, at uint64
	var err error
	var consumed int
	switch digitCount {
	case 6:
		if ft, err = strconv.ParseUint(rest[0:2], 16, 32); err != nil {
			return name, 0, 0, record.KindDataFork, false
		}
		if at, err = strconv.ParseUint(rest[2:6], 16, 32); err != nil {
			return name, 0, 0, record.KindDataFork, false
		}
		consumed = 6
	case 16:
		if ft, err = strconv.ParseUint(rest[0:8], 16, 32); err != nil {
			return name, 0, 0, record.KindDataFork, false
		}
		if at, err = strconv.ParseUint(rest[8:16], 16, 32); err != nil {
			return name, 0, 0, record.KindDataFork, false
		}
		consumed = 16
	default:
		return name, 0, 0, record.KindDataFork, false
	}

	cp := consumed
	threadKind := record.KindDataFork
	if cp < len(rest) {
		switch rest[cp] {
		case resourceFlag:
			threadKind = record.KindRsrcFork
			cp++
		case diskImageFlag:
			threadKind = record.KindDiskImage
			cp++
		}
	}

	// The only thing allowed after the type/kind token is an extension
	// (redundant with the preserved type, so just dropped) or the end
	// of the string.
	if cp < len(rest) && rest[cp] != extDelim {
		return name, 0, 0, record.KindDataFork, false
	}

	return name[:idx], uint32(ft), uint32(at), threadKind, true
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// InterpretExtension guesses a ProDOS file type and aux type from name's
// extension, consulting the recognized-extensions table first and the
// ProDOS type table second. ok is false if neither table has a match.
func InterpretExtension(name string) (fileType, auxType uint32, ok bool) {
	ext := FindExtension(name)
	if ext == "" {
		return 0, 0, false
	}
	ext = ext[1:] // drop the leading '.'

	for _, re := range recognizedExtensions {
		if strings.EqualFold(ext, re.label) {
			return re.fileType, re.auxType, true
		}
	}

	if len(ext) <= 3 {
		padded := strings.ToUpper(ext)
		for len(padded) < 3 {
			padded += " "
		}
		for i, name := range fileTypeNames {
			if name == padded {
				return uint32(i), 0, true
			}
		}
	}

	return 0, 0, false
}

// FindExtension returns the ".ext" suffix of name's final path component,
// including the leading dot, or "" if there is none (a trailing dot, or
// no dot at all, both count as none).
func FindExtension(name string) string {
	base := FilenameOnly(name)
	i := strings.LastIndexByte(base, extDelim)
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return base[i:]
}

// FilenameOnly returns the last '/'-separated component of name.
func FilenameOnly(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// EncodeForeign escapes a leading '#' as "%23" so it can't be mistaken for
// a preservation token once a type suffix is appended (spec.md §6).
func EncodeForeign(name string) string {
	if strings.HasPrefix(name, string(preserveIndic)) {
		return fmt.Sprintf("%c%02X", foreignIndic, preserveIndic) + name[1:]
	}
	return name
}

// DenormalizePath reverses EncodeForeign (and any other "%XX" escapes) in
// place, following DenormalizePath's rules: "%%" is a literal '%', "%XX"
// with two valid hex digits decodes to that byte, and anything else is
// passed through verbatim as a best-effort recovery from a malformed name.
func DenormalizePath(name string) (string, error) {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch != foreignIndic {
			b.WriteByte(ch)
			continue
		}
		if i+1 < len(name) && name[i+1] == foreignIndic {
			b.WriteByte(foreignIndic)
			i++
			continue
		}
		if i+2 < len(name) && isHexDigit(name[i+1]) && isHexDigit(name[i+2]) {
			v, err := strconv.ParseUint(name[i+1:i+3], 16, 8)
			if err != nil {
				return "", nufxerr.Wrap(nufxerr.KindInvalidFilename, err, "malformed %-escape")
			}
			b.WriteByte(byte(v))
			i += 2
			continue
		}
		b.WriteByte(foreignIndic)
	}
	return b.String(), nil
}

// SuffixForThread returns the "_rsrc_" suffix non-preserving extraction
// appends to a resource fork's filename so it doesn't collide with the
// data fork on a case-insensitive or single-namespace filesystem.
func SuffixForThread(kind record.ThreadKind) string {
	if kind == record.KindRsrcFork {
		return resourceSuffix
	}
	return ""
}
