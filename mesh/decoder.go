package mesh

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// planChunkKeyword names the PNG zTXt chunk that carries an embedded plan
const planChunkKeyword = "FloorPlan"

// DecodePlanData decodes a floor plan from the payload formats the service
// accepts:
// - raw JSON (plan, room, or {"roomData": ...} envelope)
// - gzip-compressed JSON
// - zlib-compressed JSON
// - a PNG preview carrying the plan in a zTXt chunk
func DecodePlanData(data []byte) (*FloorPlan, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	var jsonBytes []byte
	var err error

	switch {
	case IsPNG(data):
		jsonBytes, err = extractPNGzTXt(data)
		if err != nil {
			return nil, fmt.Errorf("extracting PNG zTXt: %w", err)
		}
	case trimmed[0] == '{':
		jsonBytes = trimmed
	case isGzip(data):
		jsonBytes, err = gunzip(data)
		if err != nil {
			return nil, err
		}
	default:
		jsonBytes, err = inflateZlib(data)
		if err != nil {
			return nil, fmt.Errorf("unknown format: not JSON, gzip, zlib or PNG")
		}
	}

	if len(jsonBytes) == 0 {
		return nil, fmt.Errorf("decoded JSON payload is empty")
	}
	return ParsePlanJSON(jsonBytes)
}

// DecodePlanFile reads and decodes a plan file in any accepted format
func DecodePlanFile(path string) (*FloorPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return DecodePlanData(data)
}

// IsPNG checks if data starts with PNG magic bytes
func IsPNG(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	return data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G'
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// gunzip decompresses gzip data
func gunzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompressing gzip data: %w", err)
	}
	return out, nil
}

// inflateZlib decompresses zlib-compressed data
func inflateZlib(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating zlib reader: %w", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompressing zlib data: %w", err)
	}
	return out, nil
}

// extractPNGzTXt extracts and decompresses JSON from the plan zTXt chunk.
// PNG structure: 8-byte header, then chunks (length, type, data, CRC).
func extractPNGzTXt(data []byte) ([]byte, error) {
	pos := 8
	for pos+12 <= len(data) {
		chunkLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		chunkType := string(data[pos+4 : pos+8])
		pos += 8

		if pos+chunkLen+4 > len(data) {
			return nil, fmt.Errorf("truncated PNG chunk")
		}

		if chunkType == "zTXt" {
			out, err := extractZTXtData(data[pos : pos+chunkLen])
			if err != nil {
				return nil, fmt.Errorf("extracting zTXt data: %w", err)
			}
			return out, nil
		}

		pos += chunkLen + 4
		if chunkType == "IEND" {
			break
		}
	}
	return nil, fmt.Errorf("no zTXt chunk found in PNG")
}

// extractZTXtData parses keyword\0method compressed_text
func extractZTXtData(data []byte) ([]byte, error) {
	nullIdx := bytes.IndexByte(data, 0)
	if nullIdx == -1 {
		return nil, fmt.Errorf("no null terminator in zTXt chunk")
	}
	if nullIdx+1 >= len(data) {
		return nil, fmt.Errorf("truncated zTXt chunk")
	}
	if method := data[nullIdx+1]; method != 0 {
		return nil, fmt.Errorf("unsupported compression method: %d", method)
	}
	return inflateZlib(data[nullIdx+2:])
}

// EmbedPlanInPNG returns a copy of the PNG with the plan stored in a zTXt
// chunk ahead of IEND, so a preview image can be decoded back into its plan
func EmbedPlanInPNG(pngData []byte, plan *FloorPlan) ([]byte, error) {
	if !IsPNG(pngData) || len(pngData) < 20 {
		return nil, fmt.Errorf("not a PNG image")
	}
	iend := bytes.LastIndex(pngData, []byte("IEND"))
	if iend < 4 {
		return nil, fmt.Errorf("no IEND chunk in PNG")
	}
	iend -= 4 // back to the length field

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshaling plan: %w", err)
	}

	var body bytes.Buffer
	body.WriteString(planChunkKeyword)
	body.WriteByte(0)
	body.WriteByte(0) // zlib
	zw := zlib.NewWriter(&body)
	if _, err := zw.Write(planJSON); err != nil {
		return nil, fmt.Errorf("compressing plan: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing plan: %w", err)
	}

	chunk := make([]byte, 0, body.Len()+12)
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(body.Len()))
	chunk = append(chunk, "zTXt"...)
	chunk = append(chunk, body.Bytes()...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))

	out := make([]byte, 0, len(pngData)+len(chunk))
	out = append(out, pngData[:iend]...)
	out = append(out, chunk...)
	out = append(out, pngData[iend:]...)
	return out, nil
}
