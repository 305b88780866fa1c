package codec_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/objgraph/pkg/codec"
	errs "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/serial"
)

type Part struct {
	Name     string
	Rank     int
	Weight   float64
	Tags     []string
	Parent   *Part
	Children []*Part
}

func newMarshaller() *serial.Marshaller {
	reg := serial.NewRegistry()
	reg.MustRegister(Part{})
	return serial.New(reg, serial.WithLogger(log.New(io.Discard)))
}

func newAssembly() *Part {
	root := &Part{Name: "chassis", Rank: 1, Weight: 120.5, Tags: []string{"steel"}}
	for i, name := range []string{"wheel", "axle"} {
		root.Children = append(root.Children, &Part{Name: name, Rank: i + 2, Weight: 3.25, Parent: root})
	}
	return root
}

func TestRoundTripAllFormats(t *testing.T) {
	ctx := context.Background()
	m := newMarshaller()

	for _, f := range codec.Formats() {
		t.Run(f.Name(), func(t *testing.T) {
			tree, err := m.Export(ctx, newAssembly())
			if err != nil {
				t.Fatalf("Export error: %v", err)
			}

			data, err := codec.Marshal(f, tree)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}
			decoded, err := codec.Unmarshal(f, data)
			if err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}

			got, err := serial.ImportAs[*Part](ctx, m, decoded)
			if err != nil {
				t.Fatalf("Import error: %v", err)
			}
			if got.Name != "chassis" || got.Rank != 1 || got.Weight != 120.5 {
				t.Errorf("root = %+v", got)
			}
			if len(got.Tags) != 1 || got.Tags[0] != "steel" {
				t.Errorf("Tags = %v", got.Tags)
			}
			if len(got.Children) != 2 {
				t.Fatalf("Children = %d, want 2", len(got.Children))
			}
			for i, child := range got.Children {
				if child.Parent != got {
					t.Errorf("child %d lost its back-reference", i)
				}
				if child.Weight != 3.25 || child.Rank != i+2 {
					t.Errorf("child %d = %+v", i, child)
				}
			}
		})
	}
}

func TestJSONKeepsKeyOrder(t *testing.T) {
	m := newMarshaller()
	tree, _ := m.Export(context.Background(), &Part{Name: "p", Rank: 1})

	data, err := codec.Marshal(codec.JSON, tree)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	s := string(data)
	order := []string{`"_class"`, `"_class_namespace"`, `"_class_module"`, `"_uid"`, `"Name"`, `"Rank"`, `"Weight"`}
	last := -1
	for _, key := range order {
		i := strings.Index(s, key)
		if i <= last {
			t.Fatalf("key %s out of order in:\n%s", key, s)
		}
		last = i
	}

	decoded, _ := codec.Unmarshal(codec.JSON, data)
	r := decoded.(*serial.Record)
	if r.Keys()[0] != serial.KeyClass {
		t.Errorf("decoded keys = %v", r.Keys())
	}
	if uid, _ := r.Get(serial.KeyUID); uid != int64(1) {
		t.Errorf("_uid decoded as %#v, want int64(1)", uid)
	}
}

func TestYAMLKeepsKeyOrder(t *testing.T) {
	m := newMarshaller()
	tree, _ := m.Export(context.Background(), &Part{Name: "p"})

	data, err := codec.Marshal(codec.YAML, tree)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.HasPrefix(string(data), "_class: Part\n") {
		t.Errorf("YAML should start with _class:\n%s", data)
	}
	decoded, _ := codec.Unmarshal(codec.YAML, data)
	if keys := decoded.(*serial.Record).Keys(); keys[len(keys)-1] != "Weight" {
		t.Errorf("decoded keys = %v", keys)
	}
}

func TestEncodeDetachesSharedRecords(t *testing.T) {
	shared := serial.NewRecord()
	shared.Set(serial.KeyClass, "Part")
	shared.Set(serial.KeyUID, int64(7))
	shared.Set("Name", "bolt")
	shared.Set("Self", shared)

	var buf bytes.Buffer
	if err := codec.JSON.Encode(&buf, []any{shared, shared}); err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if n := strings.Count(buf.String(), `"bolt"`); n != 1 {
		t.Errorf("shared record written %d times, want 1:\n%s", n, buf.String())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		format codec.Format
		input  string
	}{
		{"json syntax", codec.JSON, `{"a": }`},
		{"json trailing", codec.JSON, `{"a": 1} {"b": 2}`},
		{"json empty", codec.JSON, ``},
		{"yaml syntax", codec.YAML, "a: [1, 2"},
		{"yaml empty", codec.YAML, ""},
		{"toml syntax", codec.TOML, "a = "},
		{"cbor truncated", codec.CBOR, "\xa1\x61"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Unmarshal(tt.format, []byte(tt.input))
			if !errs.Is(err, errs.ErrCodeInvalidFormat) {
				t.Errorf("error = %v, want INVALID_FORMAT", err)
			}
		})
	}
}

func TestJSONNestingLimit(t *testing.T) {
	shallow := strings.Repeat("[", 100) + strings.Repeat("]", 100)
	if _, err := codec.Unmarshal(codec.JSON, []byte(shallow)); err != nil {
		t.Fatalf("100 levels: %v", err)
	}

	deep := strings.Repeat("[", 20000) + strings.Repeat("]", 20000)
	_, err := codec.Unmarshal(codec.JSON, []byte(deep))
	if !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("error = %v, want INVALID_FORMAT", err)
	}
}

func TestTOMLRequiresRecordRoot(t *testing.T) {
	_, err := codec.Marshal(codec.TOML, []any{int64(1), int64(2)})
	if err == nil {
		t.Fatal("expected error for a list root")
	}
	if !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("error code = %s, want INVALID_INPUT", errs.GetCode(err))
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"json", "json", true},
		{"JSON", "json", true},
		{"yml", "yaml", true},
		{".toml", "toml", true},
		{"cbor", "cbor", true},
		{"xml", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := codec.Lookup(tt.name)
			if (err == nil) != tt.ok {
				t.Fatalf("Lookup(%q) error = %v", tt.name, err)
			}
			if err == nil && f.Name() != tt.want {
				t.Errorf("Lookup(%q) = %s, want %s", tt.name, f.Name(), tt.want)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"scene.json", "json"},
		{"dir/rig.YML", "yaml"},
		{"/tmp/a.b.toml", "toml"},
		{"blob.cbor", "cbor"},
	}
	for _, tt := range tests {
		f, err := codec.ForPath(tt.path)
		if err != nil {
			t.Errorf("ForPath(%q) error: %v", tt.path, err)
			continue
		}
		if f.Name() != tt.want {
			t.Errorf("ForPath(%q) = %s, want %s", tt.path, f.Name(), tt.want)
		}
	}

	for _, bad := range []string{"noext", "file.xml"} {
		if _, err := codec.ForPath(bad); !errs.Is(err, errs.ErrCodeUnsupported) {
			t.Errorf("ForPath(%q) error = %v, want UNSUPPORTED", bad, err)
		}
	}
}
