package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/Faultbox/erinn/pkg/codec"
	"github.com/Faultbox/erinn/pkg/encoding"
)

func writeWString(buf *bytes.Buffer, s string) {
	b, _ := encoding.StringToUTF16LE(s)
	binary.Write(buf, binary.LittleEndian, uint16(len(b)/2))
	buf.Write(b)
}

// createTestRegion builds a classic region with one 1x1 area.
// heights holds the 25 plane heights; minH and maxH are written as given.
func createTestRegion(minH, maxH float32, heights [25]float32, props int) []byte {
	buf := new(bytes.Buffer)

	buf.WriteString("RGN\x00")
	binary.Write(buf, binary.LittleEndian, uint16(RevisionClassic))
	writeWString(buf, "tir_chonaill")
	binary.Write(buf, binary.LittleEndian, uint32(1)) // areas

	writeWString(buf, "area_01")
	binary.Write(buf, binary.LittleEndian, float32(1000)) // bottom left x
	binary.Write(buf, binary.LittleEndian, float32(2000)) // bottom left y
	binary.Write(buf, binary.LittleEndian, uint16(1))     // plane x
	binary.Write(buf, binary.LittleEndian, uint16(1))     // plane y
	binary.Write(buf, binary.LittleEndian, uint32(1))     // area planes

	buf.WriteByte(0) // show plane
	binary.Write(buf, binary.LittleEndian, minH)
	binary.Write(buf, binary.LittleEndian, maxH)
	buf.WriteByte(0) // use tiles
	buf.WriteByte(1) // material slots
	binary.Write(buf, binary.LittleEndian, uint32(42))
	buf.WriteByte(25)
	for _, h := range heights {
		binary.Write(buf, binary.LittleEndian, h)
		buf.Write([]byte{0xFF, 0x80, 0x80, 0x80})
	}

	binary.Write(buf, binary.LittleEndian, uint32(props))
	for i := 0; i < props; i++ {
		binary.Write(buf, binary.LittleEndian, uint32(100+i))
		writeWString(buf, "prop")
		binary.Write(buf, binary.LittleEndian, [3]float32{10, 20, 30})
		binary.Write(buf, binary.LittleEndian, float32(1.5))
		binary.Write(buf, binary.LittleEndian, float32(2))
		buf.WriteByte(1)
		buf.Write([]byte{0xFF, 0x10, 0x20, 0x30})
		binary.Write(buf, binary.LittleEndian, uint32(1)) // parameters
		buf.WriteByte(1)
		binary.Write(buf, binary.LittleEndian, int32(3))
		binary.Write(buf, binary.LittleEndian, int32(7))
		writeWString(buf, "OnClick")
		writeWString(buf, "<xml/>")
	}

	return buf.Bytes()
}

func TestParseRegion_ValidFile(t *testing.T) {
	var heights [25]float32
	for i := range heights {
		heights[i] = float32(i * 10)
	}
	data := createTestRegion(0, 240, heights, 2)

	region, err := ParseRegion(data)
	if err != nil {
		t.Fatalf("ParseRegion failed: %v", err)
	}

	if region.Version != RevisionClassic {
		t.Errorf("expected classic revision, got %s", region.Version)
	}
	if region.Name != "tir_chonaill" {
		t.Errorf("expected name tir_chonaill, got %q", region.Name)
	}
	if len(region.Areas) != 1 {
		t.Fatalf("expected 1 area, got %d", len(region.Areas))
	}

	area := region.Areas[0]
	if area.Name != "area_01" || area.BottomLeftX != 1000 || area.BottomLeftY != 2000 {
		t.Errorf("unexpected area header: %+v", area)
	}

	ap := area.AreaPlaneAt(0, 0)
	if ap == nil {
		t.Fatal("expected area plane at (0,0)")
	}
	if ap.Hidden() || ap.Flat() {
		t.Error("expected visible, non-flat area plane")
	}
	if slot, ok := ap.PrimarySlot(); !ok || slot != 42 {
		t.Errorf("expected primary slot 42, got %d (%v)", slot, ok)
	}
	if ap.TileSlots != nil {
		t.Error("tile slots must be absent when use-tiles is off")
	}
	if got := ap.PlaneAt(3, 2).Height; got != 130 {
		t.Errorf("expected height 130 at (3,2), got %f", got)
	}

	if len(area.Props) != 2 {
		t.Fatalf("expected 2 props, got %d", len(area.Props))
	}
	p := area.Props[1]
	if p.ClassID != 101 || p.Rotation != 1.5 || p.Scale != 2 {
		t.Errorf("unexpected prop: %+v", p)
	}
	if len(p.Colors) != 1 || p.Colors[0] != (codec.Color{A: 0xFF, R: 0x10, G: 0x20, B: 0x30}) {
		t.Errorf("unexpected colors: %v", p.Colors)
	}
	if len(p.Parameters) != 1 || p.Parameters[0].Name != "OnClick" || p.Parameters[0].SignalType != 7 {
		t.Errorf("unexpected parameters: %+v", p.Parameters)
	}
	if region.PropCount() != 2 {
		t.Errorf("expected prop count 2, got %d", region.PropCount())
	}
}

func TestParseRegion_InvalidMagic(t *testing.T) {
	data := []byte("XXXX\x01\x00")
	_, err := ParseRegion(data)
	if err != ErrInvalidRegionMagic {
		t.Errorf("expected ErrInvalidRegionMagic, got %v", err)
	}
}

func TestParseRegion_UnsupportedVersion(t *testing.T) {
	data := []byte("RGN\x00\x09\x00")
	_, err := ParseRegion(data)
	if !errors.Is(err, ErrUnsupportedRegionVersion) {
		t.Errorf("expected ErrUnsupportedRegionVersion, got %v", err)
	}
}

func TestParseRegion_TruncatedHeader(t *testing.T) {
	_, err := ParseRegion([]byte("RGN"))
	if !errors.Is(err, codec.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestParseRegion_Corrupt(t *testing.T) {
	var heights [25]float32
	valid := createTestRegion(0, 10, heights, 1)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		format bool // also a FormatError underneath
	}{
		{
			name: "area count larger than data",
			mutate: func(b []byte) []byte {
				// header: magic(4) + version(2) + name(2+24)
				binary.LittleEndian.PutUint32(b[32:], 5000)
				return b
			},
		},
		{
			name:   "truncated inside prop",
			mutate: func(b []byte) []byte { return b[:len(b)-5] },
			format: true,
		},
		{
			name: "area plane count disagrees with grid",
			mutate: func(b []byte) []byte {
				// area: name(2+14) + floats(8) + plane x/y(4)
				binary.LittleEndian.PutUint16(b[36+16+8:], 2)
				return b
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), valid...))
			_, err := ParseRegion(data)
			if !errors.Is(err, ErrCorruptRegion) {
				t.Fatalf("expected ErrCorruptRegion, got %v", err)
			}
			var cre *CorruptRegionError
			if !errors.As(err, &cre) {
				t.Fatalf("expected *CorruptRegionError, got %T", err)
			}
			if tt.format && !errors.Is(err, codec.ErrFormat) {
				t.Errorf("expected wrapped ErrFormat, got %v", err)
			}
		})
	}
}

func TestParseRegion_WrongPlaneCount(t *testing.T) {
	var heights [25]float32
	data := createTestRegion(0, 10, heights, 0)

	// use tiles, slot count, slot 42, plane count
	idx := bytes.Index(data, []byte{0, 1, 42, 0, 0, 0, 25})
	if idx < 0 {
		t.Fatal("could not locate plane count")
	}
	data[idx+6] = 24

	_, err := ParseRegion(data)
	if !errors.Is(err, ErrCorruptRegion) {
		t.Errorf("expected ErrCorruptRegion for 24 planes, got %v", err)
	}
}

func TestPlaneCoord(t *testing.T) {
	for i := 0; i < PlanesPerAreaPlane; i++ {
		x, y := PlaneCoord(i)
		if x != i%5 || y != i/5 {
			t.Errorf("PlaneCoord(%d) = (%d,%d)", i, x, y)
		}
	}
}

func TestAreaPlaneActiveSlots(t *testing.T) {
	ap := AreaPlane{MaterialSlots: []uint32{1, 2}, TileSlots: []uint16{7}}
	if got := ap.ActiveSlots(); !reflect.DeepEqual(got, []uint32{1, 2}) {
		t.Errorf("expected material slots, got %v", got)
	}
	ap.UseTiles = true
	if got := ap.ActiveSlots(); !reflect.DeepEqual(got, []uint32{7}) {
		t.Errorf("expected tile slots, got %v", got)
	}
}

func TestRevision(t *testing.T) {
	if !RevisionPlaneUV.AtLeast(RevisionClassic) || RevisionClassic.AtLeast(RevisionPlaneUV) {
		t.Error("unexpected revision ordering")
	}
	if RevisionClassic.HasPlaneUV() || !RevisionPlaneUV.HasPlaneUV() {
		t.Error("unexpected HasPlaneUV")
	}
}

var regionNames = []string{"", "uladh", "Dunbarton", "던바튼", "area/with/slash", "Ω"}

// generateRegion builds a random region tree that encodes without loss.
func generateRegion(rng *rand.Rand) *Region {
	rev := RevisionClassic
	if rng.IntN(2) == 1 {
		rev = RevisionPlaneUV
	}
	pick := func() string { return regionNames[rng.IntN(len(regionNames))] }
	f32 := func() float32 { return rng.Float32()*20000 - 10000 }

	region := &Region{Version: rev, Name: pick(), Areas: make([]Area, rng.IntN(3))}
	for ai := range region.Areas {
		a := &region.Areas[ai]
		a.Name = pick()
		a.BottomLeftX, a.BottomLeftY = f32(), f32()
		a.PlaneX = uint16(rng.IntN(3))
		a.PlaneY = uint16(rng.IntN(3))
		a.AreaPlanes = make([]AreaPlane, int(a.PlaneX)*int(a.PlaneY))
		for pi := range a.AreaPlanes {
			ap := &a.AreaPlanes[pi]
			if rev.HasPlaneUV() {
				ap.Version = uint8(rng.IntN(4))
			}
			ap.ShowPlane = uint8(rng.IntN(2))
			ap.MinHeight, ap.MaxHeight = f32(), f32()
			ap.UseTiles = rng.IntN(2) == 1
			ap.MaterialSlots = make([]uint32, rng.IntN(4))
			for i := range ap.MaterialSlots {
				ap.MaterialSlots[i] = rng.Uint32()
			}
			if ap.UseTiles {
				ap.TileSlots = make([]uint16, rng.IntN(5))
				for i := range ap.TileSlots {
					ap.TileSlots[i] = uint16(rng.UintN(65536))
				}
			}
			for i := range ap.Planes {
				ap.Planes[i].Height = f32()
				if rev.HasPlaneUV() {
					ap.Planes[i].U, ap.Planes[i].V = rng.Float32(), rng.Float32()
				}
				ap.Planes[i].Color = codec.ColorFromARGB(rng.Uint32())
			}
		}
		a.Props = make([]Prop, rng.IntN(4))
		for pi := range a.Props {
			p := &a.Props[pi]
			p.ClassID = rng.Uint32()
			p.Name = pick()
			p.Position = [3]float32{f32(), f32(), f32()}
			p.Rotation = rng.Float32() * 6.28
			p.Scale = rng.Float32() * 3
			p.Colors = make([]codec.Color, rng.IntN(9))
			for i := range p.Colors {
				p.Colors[i] = codec.ColorFromARGB(rng.Uint32())
			}
			p.Parameters = make([]EntityParameter, rng.IntN(3))
			for i := range p.Parameters {
				p.Parameters[i] = EntityParameter{
					IsDefault:  rng.IntN(2) == 1,
					Type:       ParameterType(rng.Int32()),
					SignalType: SignalType(rng.Int32()),
					Name:       pick(),
					XML:        "<param value=\"" + pick() + "\"/>",
				}
			}
		}
	}
	return region
}

func TestRegionRoundTrip_Generated(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 200; i++ {
		want := generateRegion(rng)

		data, err := want.Encode()
		if err != nil {
			t.Fatalf("iteration %d: Encode failed: %v", i, err)
		}
		got, err := ParseRegion(data)
		if err != nil {
			t.Fatalf("iteration %d: ParseRegion failed: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("iteration %d: round trip mismatch\n got: %+v\nwant: %+v", i, got, want)
		}
	}
}

func TestRegionWriteTo(t *testing.T) {
	region := generateRegion(rand.New(rand.NewPCG(3, 4)))
	var buf bytes.Buffer
	n, err := region.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if int(n) != buf.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}
}

func FuzzRegionRoundTrip(f *testing.F) {
	rng := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 8; i++ {
		data, err := generateRegion(rng).Encode()
		if err != nil {
			f.Fatal(err)
		}
		f.Add(data)
	}
	var heights [25]float32
	f.Add(createTestRegion(5, 5, heights, 1))

	f.Fuzz(func(t *testing.T, data []byte) {
		region, err := ParseRegion(data)
		if err != nil {
			return
		}
		first, err := region.Encode()
		if err != nil {
			t.Fatalf("Encode of decoded region failed: %v", err)
		}
		again, err := ParseRegion(first)
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		second, err := again.Encode()
		if err != nil {
			t.Fatalf("second Encode failed: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Fatalf("encoding is not stable across a round trip")
		}
	})
}
