package mesh

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

const singleRoomJSON = `{"id":"study","width":3,"length":4,"position":{"x":1,"y":2},"windows":[{"wall":"back"}]}`

func TestIsPNG(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{
			name:     "valid PNG header",
			data:     []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
			expected: true,
		},
		{
			name:     "invalid header",
			data:     []byte{0x00, 0x00, 0x00, 0x00},
			expected: false,
		},
		{
			name:     "too short",
			data:     []byte{0x89, 'P', 'N'},
			expected: false,
		},
		{
			name:     "JSON data",
			data:     []byte(`{"rooms":[]}`),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsPNG(tt.data); result != tt.expected {
				t.Errorf("IsPNG() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func compressZlib(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	return buf.Bytes()
}

func compressGzip(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	return buf.Bytes()
}

// testPNG encodes a small opaque image
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.NRGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode error = %v", err)
	}
	return buf.Bytes()
}

func TestInflateZlib(t *testing.T) {
	original := []byte(twoRoomPlanJSON)
	decompressed, err := inflateZlib(compressZlib(t, original))
	if err != nil {
		t.Fatalf("inflateZlib() error = %v", err)
	}
	if !bytes.Equal(decompressed, original) {
		t.Errorf("inflateZlib() = %s, want %s", decompressed, original)
	}

	if _, err := inflateZlib([]byte("not zlib")); err == nil {
		t.Error("inflateZlib() expected error for invalid data")
	}
}

func TestDecodePlanData_Formats(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"raw JSON", []byte(twoRoomPlanJSON)},
		{"JSON with whitespace", []byte("\n\t " + twoRoomPlanJSON + "\n")},
		{"roomData envelope", []byte(`{"roomData":` + twoRoomPlanJSON + `}`)},
		{"gzip", compressGzip(t, []byte(twoRoomPlanJSON))},
		{"zlib", compressZlib(t, []byte(twoRoomPlanJSON))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := DecodePlanData(tt.data)
			if err != nil {
				t.Fatalf("DecodePlanData() error = %v", err)
			}
			if plan.ID != "house" {
				t.Errorf("ID = %q, want house", plan.ID)
			}
			if len(plan.Rooms) != 2 {
				t.Fatalf("Rooms = %d, want 2", len(plan.Rooms))
			}
			if len(plan.Rooms[0].Doors) != 1 {
				t.Errorf("Doors = %d, want 1", len(plan.Rooms[0].Doors))
			}
		})
	}
}

func TestDecodePlanData_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"whitespace", []byte("   ")},
		{"garbage", []byte("hello world")},
		{"corrupt gzip", []byte{0x1f, 0x8b, 0x00, 0x01}},
		{"PNG without plan", testPNG(t)},
		{"JSON array", []byte(`[1,2,3]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePlanData(tt.data); err == nil {
				t.Error("DecodePlanData() expected error")
			}
		})
	}
}

func TestEmbedPlanInPNG_RoundTrip(t *testing.T) {
	plan, err := ParsePlanJSON([]byte(twoRoomPlanJSON))
	if err != nil {
		t.Fatalf("ParsePlanJSON() error = %v", err)
	}

	original := testPNG(t)
	embedded, err := EmbedPlanInPNG(original, plan)
	if err != nil {
		t.Fatalf("EmbedPlanInPNG() error = %v", err)
	}

	// Still a valid image
	if _, err := png.Decode(bytes.NewReader(embedded)); err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}

	decoded, err := DecodePlanData(embedded)
	if err != nil {
		t.Fatalf("DecodePlanData() error = %v", err)
	}
	if decoded.ID != plan.ID || len(decoded.Rooms) != len(plan.Rooms) {
		t.Errorf("decoded plan = %+v, want %+v", decoded, plan)
	}
	if decoded.Rooms[1].Position != plan.Rooms[1].Position {
		t.Errorf("position = %v, want %v", decoded.Rooms[1].Position, plan.Rooms[1].Position)
	}
}

func TestEmbedPlanInPNG_NotPNG(t *testing.T) {
	if _, err := EmbedPlanInPNG([]byte(`{"rooms":[]}`), &FloorPlan{}); err == nil {
		t.Error("EmbedPlanInPNG() expected error for non-PNG data")
	}
}

func TestExtractZTXtData(t *testing.T) {
	jsonData := []byte(singleRoomJSON)

	// keyword\0compression_method compressed_data
	ztxtData := append([]byte(planChunkKeyword), 0)
	ztxtData = append(ztxtData, 0)
	ztxtData = append(ztxtData, compressZlib(t, jsonData)...)

	extracted, err := extractZTXtData(ztxtData)
	if err != nil {
		t.Fatalf("extractZTXtData() error = %v", err)
	}
	if !bytes.Equal(extracted, jsonData) {
		t.Errorf("extractZTXtData() = %s, want %s", extracted, jsonData)
	}

	if _, err := extractZTXtData([]byte("no terminator")); err == nil {
		t.Error("expected error without null terminator")
	}
	if _, err := extractZTXtData(append([]byte("k\x00"), 1, 2, 3)); err == nil {
		t.Error("expected error for unsupported compression method")
	}
}

func TestDecodePlanFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json.gz")
	if err := os.WriteFile(path, compressGzip(t, []byte(singleRoomJSON)), 0644); err != nil {
		t.Fatal(err)
	}

	plan, err := DecodePlanFile(path)
	if err != nil {
		t.Fatalf("DecodePlanFile() error = %v", err)
	}
	if plan.ID != "study" || len(plan.Rooms) != 1 {
		t.Errorf("plan = %+v, want single room study", plan)
	}

	if _, err := DecodePlanFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
