package bootconfig

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/fstest"
	"testing/iotest"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

const (
	linuxPath   = `\EFI\linux\bootx64.efi`
	windowsPath = `\EFI\Microsoft\Boot\bootmgfw.efi`
)

func genConfig(n int) (string, []BootEntry) {
	var (
		sb       strings.Builder
		expected []BootEntry
	)
	for i := 0; i < n; i++ {
		e := BootEntry{Name: fmt.Sprintf("OS %d", i), Path: fmt.Sprintf(`\EFI\os%d\boot.efi`, i)}
		fmt.Fprintf(&sb, "%s=%s\n", e.Name, e.Path)
		expected = append(expected, e)
	}
	return sb.String(), expected
}

func TestParseCounts(t *testing.T) {
	for n := 0; n <= MaxEntries; n++ {
		cfg, expected := genConfig(n)
		menu := Parse(strings.NewReader(cfg))
		require.Equal(t, n, menu.Len())
		if n == 0 {
			require.Empty(t, menu.Entries())
			continue
		}
		require.Equal(t, expected, menu.Entries())
	}
}

func TestParseOverCapacity(t *testing.T) {
	cfg, expected := genConfig(25)
	menu := Parse(strings.NewReader(cfg))
	require.Equal(t, MaxEntries, menu.Len())
	require.True(t, menu.Full())
	require.Equal(t, expected[:MaxEntries], menu.Entries())
}

func TestParseMalformedRecords(t *testing.T) {
	cfg := "Linux=" + linuxPath + "\n" +
		"this line has no separator\n" +
		"\n" +
		"=" + `\EFI\noname.efi` + "\n" +
		"   =" + `\EFI\blank.efi` + "\n" +
		"Empty=\n" +
		"Windows=" + windowsPath + "\n"
	menu := Parse(strings.NewReader(cfg))
	require.Equal(t, []BootEntry{
		{Name: "Linux", Path: linuxPath},
		{Name: "Windows", Path: windowsPath},
	}, menu.Entries())
}

func TestParseFirstSeparatorWins(t *testing.T) {
	menu := Parse(strings.NewReader("Shell=\\EFI\\tools\\shell.efi=x\n"))
	require.Equal(t, 1, menu.Len())
	require.Equal(t, "Shell", menu.Entry(0).Name)
	require.Equal(t, `\EFI\tools\shell.efi=x`, menu.Entry(0).Path)
}

func TestParseCRLFAndMissingFinalTerminator(t *testing.T) {
	cfg := "Linux=" + linuxPath + "\r\n" + "Windows=" + windowsPath
	menu := Parse(strings.NewReader(cfg))
	require.Equal(t, []BootEntry{
		{Name: "Linux", Path: linuxPath},
		{Name: "Windows", Path: windowsPath},
	}, menu.Entries())
}

func TestParseIndependentOfChunking(t *testing.T) {
	cfg, expected := genConfig(7)
	menu := Parse(iotest.OneByteReader(strings.NewReader(cfg)))
	require.Equal(t, expected, menu.Entries())

	oldSize := ReadChunkSize
	defer func() { ReadChunkSize = oldSize }()
	ReadChunkSize = 5
	menu = Parse(iotest.HalfReader(strings.NewReader(cfg)))
	require.Equal(t, expected, menu.Entries())
}

func TestParseStopsOnReadError(t *testing.T) {
	r := io.MultiReader(
		strings.NewReader("Linux="+linuxPath+"\n"),
		iotest.ErrReader(errors.New("device error")),
		strings.NewReader("Windows="+windowsPath+"\n"),
	)
	menu := Parse(r)
	require.Equal(t, []BootEntry{{Name: "Linux", Path: linuxPath}}, menu.Entries())
}

// emptyReadReader returns no data and no error once between two readers
type emptyReadReader struct {
	first, second io.Reader
	empty         bool
}

func (r *emptyReadReader) Read(p []byte) (int, error) {
	if r.first != nil {
		n, err := r.first.Read(p)
		if err == io.EOF {
			r.first = nil
			err = nil
		}
		return n, err
	}
	if !r.empty {
		r.empty = true
		return 0, nil
	}
	return r.second.Read(p)
}

func TestParseContinuesAfterEmptyRead(t *testing.T) {
	r := &emptyReadReader{
		first:  strings.NewReader("Linux=" + linuxPath + "\n"),
		second: strings.NewReader("Windows=" + windowsPath + "\n"),
	}
	menu := Parse(r)
	require.Equal(t, []BootEntry{
		{Name: "Linux", Path: linuxPath},
		{Name: "Windows", Path: windowsPath},
	}, menu.Entries())
}

func TestParseSizeLimit(t *testing.T) {
	linux := "Linux=" + linuxPath + "\n"
	oldSize := MaxConfigSize
	defer func() { MaxConfigSize = oldSize }()

	// the limit cuts the second record, the third is past it
	MaxConfigSize = len(linux) + 4
	menu := Parse(strings.NewReader(linux + "Windows=" + windowsPath + "\nShell=\\EFI\\shell.efi\n"))
	require.Equal(t, []BootEntry{{Name: "Linux", Path: linuxPath}}, menu.Entries())

	MaxConfigSize = len(linux)
	menu = Parse(strings.NewReader(linux + "Windows=" + windowsPath + "\n"))
	require.Equal(t, []BootEntry{{Name: "Linux", Path: linuxPath}}, menu.Entries())

	// an unterminated last record ending exactly at the limit is kept
	cfg := linux + "Windows=" + windowsPath
	MaxConfigSize = len(cfg)
	menu = Parse(strings.NewReader(cfg))
	require.Equal(t, 2, menu.Len())
}

func TestParseUTF16(t *testing.T) {
	cfg := "Linux=" + linuxPath + "\r\nWindows=" + windowsPath + "\r\n"
	for _, enc := range []struct {
		name string
		bom  unicode.BOMPolicy
		end  unicode.Endianness
	}{
		{"le-bom", unicode.UseBOM, unicode.LittleEndian},
		{"be-bom", unicode.UseBOM, unicode.BigEndian},
		{"le-nobom", unicode.IgnoreBOM, unicode.LittleEndian},
	} {
		t.Run(enc.name, func(t *testing.T) {
			encoded, err := unicode.UTF16(enc.end, enc.bom).NewEncoder().String(cfg)
			require.NoError(t, err)
			menu := Parse(strings.NewReader(encoded))
			require.Equal(t, []BootEntry{
				{Name: "Linux", Path: linuxPath},
				{Name: "Windows", Path: windowsPath},
			}, menu.Entries())
		})
	}
}

func TestParseUTF8BOM(t *testing.T) {
	menu := Parse(strings.NewReader("\xef\xbb\xbfLinux=" + linuxPath + "\n"))
	require.Equal(t, 1, menu.Len())
	require.Equal(t, "Linux", menu.Entry(0).Name)
}

func TestParseLengthLimits(t *testing.T) {
	longName := strings.Repeat("n", 40)
	longPath := `\EFI\` + strings.Repeat("p", MaxPathLen)
	cfg := longName + "=" + linuxPath + "\n" + "TooLong=" + longPath + "\n" + "Windows=" + windowsPath + "\n"
	menu := Parse(strings.NewReader(cfg))
	require.Equal(t, 2, menu.Len())
	require.Equal(t, strings.Repeat("n", MaxNameLen), menu.Entry(0).Name)
	require.Equal(t, "Windows", menu.Entry(1).Name)
}

func TestTruncateKeepsSurrogatePairs(t *testing.T) {
	// U+1F600 takes two UTF-16 code units
	name := strings.Repeat("a", MaxNameLen-1) + "\U0001F600"
	require.Equal(t, strings.Repeat("a", MaxNameLen-1), truncate(name, MaxNameLen))
	require.Equal(t, MaxNameLen+1, codeUnits(name))
}

func TestNewMenu(t *testing.T) {
	_, entries := genConfig(12)
	entries = append([]BootEntry{{Name: "no path"}}, entries...)
	menu := NewMenu(entries...)
	require.Equal(t, MaxEntries, menu.Len())
	require.Equal(t, entries[1:MaxEntries+1], menu.Entries())

	var nilMenu *Menu
	require.Equal(t, 0, nilMenu.Len())
}

func TestLoad(t *testing.T) {
	cfg := "Linux=" + linuxPath + "\nWindows=" + windowsPath + "\n"
	volume := fstest.MapFS{
		"EFI/MultiEFI/MultiEFI.cfg": &fstest.MapFile{Data: []byte(cfg)},
	}
	var measured []byte
	var measuredInfo string
	loader := Loader{
		Volume: volume,
		Measure: func(data []byte, info string) {
			measured = append([]byte(nil), data...)
			measuredInfo = info
		},
	}
	menu, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, 2, menu.Len())
	require.Equal(t, cfg, string(measured))
	require.Equal(t, "EFI/MultiEFI/MultiEFI.cfg", measuredInfo)
}

func TestLoadMeasuresWholeFile(t *testing.T) {
	records, expected := genConfig(12)
	cfg := records + strings.Repeat("# this line is not a record\n", 200)
	require.Greater(t, len(cfg), 4096)
	var measured []byte
	loader := Loader{
		Volume: fstest.MapFS{"boot.cfg": &fstest.MapFile{Data: []byte(cfg)}},
		Path:   "boot.cfg",
		Measure: func(data []byte, info string) {
			measured = append([]byte(nil), data...)
		},
	}
	menu, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, expected[:MaxEntries], menu.Entries())
	require.Equal(t, cfg, string(measured))
}

func TestLoadMissing(t *testing.T) {
	loader := Loader{Volume: fstest.MapFS{}}
	menu, err := loader.Load()
	require.Nil(t, menu)
	require.True(t, errors.Is(err, ErrConfigMissing))
}

func TestLoadEmpty(t *testing.T) {
	loader := Loader{
		Volume: fstest.MapFS{"boot.cfg": &fstest.MapFile{}},
		Path:   "boot.cfg",
	}
	menu, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, 0, menu.Len())
}

func TestConfigPath(t *testing.T) {
	require.Equal(t, "EFI/MultiEFI/MultiEFI.cfg", ConfigPath("MultiEFI"))
	require.Equal(t, "EFI/other/other.cfg", ConfigPath("other"))
}
