package formats

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/erinn/pkg/codec"
)

// Region format errors.
var (
	ErrInvalidRegionMagic       = errors.New("invalid region magic: expected 'RGN\\x00'")
	ErrUnsupportedRegionVersion = errors.New("unsupported region version")
	ErrCorruptRegion            = errors.New("corrupt region")
)

const regionMagic = "RGN\x00"

// PlanesPerAreaPlane is the fixed number of height samples in an AreaPlane (5x5).
const PlanesPerAreaPlane = 25

// PlaneGridSize is the number of samples along one AreaPlane edge.
const PlaneGridSize = 5

// Revision identifies the region container revision.
type Revision uint16

const (
	RevisionClassic Revision = 1 // heights and colours only
	RevisionPlaneUV Revision = 2 // per-plane UV and an AreaPlane version byte
)

// String returns a human-readable revision name.
func (v Revision) String() string {
	switch v {
	case RevisionClassic:
		return "classic"
	case RevisionPlaneUV:
		return "plane-uv"
	default:
		return fmt.Sprintf("Revision(%d)", uint16(v))
	}
}

// AtLeast returns true if v is the same as or newer than other.
func (v Revision) AtLeast(other Revision) bool {
	return v >= other
}

// HasPlaneUV reports whether planes carry stored UV offsets.
func (v Revision) HasPlaneUV() bool {
	return v.AtLeast(RevisionPlaneUV)
}

// CorruptRegionError reports a declared count that the data cannot satisfy.
type CorruptRegionError struct {
	Path      string // e.g. "area 2/area plane 7"
	Field     string
	Count     int
	Available int   // remaining bytes when the count was checked
	Err       error // underlying FormatError, if any
}

func (e *CorruptRegionError) Error() string {
	msg := fmt.Sprintf("%v: %s: %s", ErrCorruptRegion, e.Path, e.Field)
	if e.Count >= 0 {
		msg += fmt.Sprintf(" (count %d, %d bytes left)", e.Count, e.Available)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrCorruptRegion.
func (e *CorruptRegionError) Is(target error) bool {
	return target == ErrCorruptRegion
}

func (e *CorruptRegionError) Unwrap() error {
	return e.Err
}

// ParameterType classifies an EntityParameter.
type ParameterType int32

// SignalType names the script signal an EntityParameter reacts to.
type SignalType int32

// EntityParameter is opaque scripting data attached to a prop.
type EntityParameter struct {
	IsDefault  bool
	Type       ParameterType
	SignalType SignalType
	Name       string
	XML        string
}

// Plane is one height sample of an AreaPlane.
type Plane struct {
	Height float32
	U, V   float32 // only stored for RevisionPlaneUV
	Color  codec.Color
}

// AreaPlane is a 4x4 cell terrain block described by a 5x5 grid of planes.
// The outer row and column repeat the neighbouring block's samples.
type AreaPlane struct {
	Version       uint8 // only stored for RevisionPlaneUV
	ShowPlane     uint8 // 1 means hidden
	MinHeight     float32
	MaxHeight     float32
	UseTiles      bool
	MaterialSlots []uint32
	TileSlots     []uint16 // only stored when UseTiles is set
	Planes        [PlanesPerAreaPlane]Plane
}

// Hidden reports whether the block is excluded from terrain output.
func (ap *AreaPlane) Hidden() bool {
	return ap.ShowPlane == 1
}

// Flat reports whether all samples share one height.
func (ap *AreaPlane) Flat() bool {
	return ap.MinHeight == ap.MaxHeight
}

// PlaneAt returns the sample at grid coordinate (x, y), or nil if out of range.
func (ap *AreaPlane) PlaneAt(x, y int) *Plane {
	if x < 0 || y < 0 || x >= PlaneGridSize || y >= PlaneGridSize {
		return nil
	}
	return &ap.Planes[y*PlaneGridSize+x]
}

// ActiveSlots returns the slot array selected by UseTiles.
func (ap *AreaPlane) ActiveSlots() []uint32 {
	if !ap.UseTiles {
		return ap.MaterialSlots
	}
	slots := make([]uint32, len(ap.TileSlots))
	for i, s := range ap.TileSlots {
		slots[i] = uint32(s)
	}
	return slots
}

// PrimarySlot returns the material slot used for the whole block.
func (ap *AreaPlane) PrimarySlot() (uint32, bool) {
	if len(ap.MaterialSlots) == 0 {
		return 0, false
	}
	return ap.MaterialSlots[0], true
}

// PlaneCoord returns the grid coordinate of plane index i.
func PlaneCoord(i int) (x, y int) {
	return i % PlaneGridSize, i / PlaneGridSize
}

// Prop is a placed static object.
type Prop struct {
	ClassID    uint32
	Name       string
	Position   [3]float32 // millimetres, source axes
	Rotation   float32    // radians around the vertical axis
	Scale      float32
	Colors     []codec.Color
	Parameters []EntityParameter
}

// Area is a named sub-region with its own AreaPlane grid.
type Area struct {
	Name        string
	BottomLeftX float32
	BottomLeftY float32
	PlaneX      uint16
	PlaneY      uint16
	AreaPlanes  []AreaPlane // row-major: index = y*PlaneX + x
	Props       []Prop
}

// AreaPlaneAt returns the block at grid coordinate (x, y), or nil if out of range.
func (a *Area) AreaPlaneAt(x, y int) *AreaPlane {
	if x < 0 || y < 0 || x >= int(a.PlaneX) || y >= int(a.PlaneY) {
		return nil
	}
	return &a.AreaPlanes[y*int(a.PlaneX)+x]
}

// AreaPlaneCoord returns the grid coordinate of block index i.
func (a *Area) AreaPlaneCoord(i int) (x, y int) {
	if a.PlaneX == 0 {
		return 0, 0
	}
	return i % int(a.PlaneX), i / int(a.PlaneX)
}

// Region is the root of a decoded world map.
type Region struct {
	Version Revision
	Name    string
	Areas   []Area
}

// PropCount returns the number of props over all areas.
func (r *Region) PropCount() int {
	n := 0
	for i := range r.Areas {
		n += len(r.Areas[i].Props)
	}
	return n
}

// Minimum encoded record sizes, used to reject impossible counts before allocating.
const (
	minAreaSize      = 2 + 4 + 4 + 2 + 2 + 4 + 4
	minPropSize      = 4 + 2 + 12 + 4 + 4 + 1 + 4
	minParameterSize = 1 + 4 + 4 + 2 + 2
	classicPlaneSize = 4 + 4
	uvPlaneSize      = 4 + 8 + 4
)

func minAreaPlaneSize(rev Revision) int {
	n := 1 + 4 + 4 + 1 + 1 + 1 + PlanesPerAreaPlane*classicPlaneSize
	if rev.HasPlaneUV() {
		n += 1 + PlanesPerAreaPlane*(uvPlaneSize-classicPlaneSize)
	}
	return n
}

// regionDecoder carries the revision and current path through the recursive decode.
type regionDecoder struct {
	r   *codec.Reader
	rev Revision
}

func (d *regionDecoder) checkCount(path, field string, count, minSize int) error {
	if count*minSize > d.r.Remaining() {
		return &CorruptRegionError{Path: path, Field: field, Count: count, Available: d.r.Remaining()}
	}
	return nil
}

// nested wraps truncation inside a counted array as a corrupt region.
func nested(path string, err error) error {
	var cre *CorruptRegionError
	if errors.As(err, &cre) {
		return err
	}
	var fe *codec.FormatError
	if errors.As(err, &fe) {
		return &CorruptRegionError{Path: path, Field: fe.Field, Count: -1, Err: err}
	}
	return err
}

// ParseRegion parses a region file from raw bytes.
func ParseRegion(data []byte) (*Region, error) {
	r := codec.NewReader(data)

	magic, err := r.Bytes(4, "magic")
	if err != nil {
		return nil, err
	}
	if string(magic) != regionMagic {
		return nil, ErrInvalidRegionMagic
	}

	version, err := r.Uint16("version")
	if err != nil {
		return nil, err
	}
	rev := Revision(version)
	if rev != RevisionClassic && rev != RevisionPlaneUV {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedRegionVersion, version)
	}

	region := &Region{Version: rev}
	if region.Name, err = r.WString("region name"); err != nil {
		return nil, err
	}

	areaCount, err := r.Uint32("area count")
	if err != nil {
		return nil, err
	}

	d := &regionDecoder{r: r, rev: rev}
	if err := d.checkCount("region", "area count", int(areaCount), minAreaSize); err != nil {
		return nil, err
	}

	region.Areas = make([]Area, areaCount)
	for i := range region.Areas {
		path := fmt.Sprintf("area %d", i)
		if err := d.area(&region.Areas[i], path); err != nil {
			return nil, nested(path, err)
		}
	}

	return region, nil
}

func (d *regionDecoder) area(a *Area, path string) error {
	r := d.r
	var err error

	if a.Name, err = r.WString("area name"); err != nil {
		return err
	}
	if a.BottomLeftX, err = r.Float32("bottom left x"); err != nil {
		return err
	}
	if a.BottomLeftY, err = r.Float32("bottom left y"); err != nil {
		return err
	}
	if a.PlaneX, err = r.Uint16("plane x"); err != nil {
		return err
	}
	if a.PlaneY, err = r.Uint16("plane y"); err != nil {
		return err
	}

	count, err := r.Uint32("area plane count")
	if err != nil {
		return err
	}
	if int(count) != int(a.PlaneX)*int(a.PlaneY) {
		return &CorruptRegionError{
			Path:      path,
			Field:     fmt.Sprintf("area plane count does not match %dx%d grid", a.PlaneX, a.PlaneY),
			Count:     int(count),
			Available: r.Remaining(),
		}
	}
	if err := d.checkCount(path, "area plane count", int(count), minAreaPlaneSize(d.rev)); err != nil {
		return err
	}

	a.AreaPlanes = make([]AreaPlane, count)
	for i := range a.AreaPlanes {
		p := fmt.Sprintf("%s/area plane %d", path, i)
		if err := d.areaPlane(&a.AreaPlanes[i], p); err != nil {
			return nested(p, err)
		}
	}

	propCount, err := r.Uint32("prop count")
	if err != nil {
		return err
	}
	if err := d.checkCount(path, "prop count", int(propCount), minPropSize); err != nil {
		return err
	}

	a.Props = make([]Prop, propCount)
	for i := range a.Props {
		p := fmt.Sprintf("%s/prop %d", path, i)
		if err := d.prop(&a.Props[i], p); err != nil {
			return nested(p, err)
		}
	}

	return nil
}

func (d *regionDecoder) areaPlane(ap *AreaPlane, path string) error {
	r := d.r
	var err error

	if d.rev.HasPlaneUV() {
		if ap.Version, err = r.Uint8("area plane version"); err != nil {
			return err
		}
	}
	if ap.ShowPlane, err = r.Uint8("show plane"); err != nil {
		return err
	}
	if ap.MinHeight, err = r.Float32("min height"); err != nil {
		return err
	}
	if ap.MaxHeight, err = r.Float32("max height"); err != nil {
		return err
	}
	if ap.UseTiles, err = r.Bool("use tiles"); err != nil {
		return err
	}

	slotCount, err := r.Uint8("material slot count")
	if err != nil {
		return err
	}
	if err := d.checkCount(path, "material slot count", int(slotCount), 4); err != nil {
		return err
	}
	ap.MaterialSlots = make([]uint32, slotCount)
	for i := range ap.MaterialSlots {
		if ap.MaterialSlots[i], err = r.Uint32("material slot"); err != nil {
			return err
		}
	}

	if ap.UseTiles {
		tileCount, err := r.Uint8("tile slot count")
		if err != nil {
			return err
		}
		if err := d.checkCount(path, "tile slot count", int(tileCount), 2); err != nil {
			return err
		}
		ap.TileSlots = make([]uint16, tileCount)
		for i := range ap.TileSlots {
			if ap.TileSlots[i], err = r.Uint16("tile slot"); err != nil {
				return err
			}
		}
	}

	planeCount, err := r.Uint8("plane count")
	if err != nil {
		return err
	}
	if planeCount != PlanesPerAreaPlane {
		return &CorruptRegionError{
			Path:      path,
			Field:     fmt.Sprintf("plane count must be %d", PlanesPerAreaPlane),
			Count:     int(planeCount),
			Available: r.Remaining(),
		}
	}

	planeSize := classicPlaneSize
	if d.rev.HasPlaneUV() {
		planeSize = uvPlaneSize
	}
	if err := d.checkCount(path, "plane count", PlanesPerAreaPlane, planeSize); err != nil {
		return err
	}

	for i := range ap.Planes {
		pl := &ap.Planes[i]
		if pl.Height, err = r.Float32("plane height"); err != nil {
			return err
		}
		if d.rev.HasPlaneUV() {
			if pl.U, err = r.Float32("plane u"); err != nil {
				return err
			}
			if pl.V, err = r.Float32("plane v"); err != nil {
				return err
			}
		}
		if pl.Color, err = r.Color("plane color"); err != nil {
			return err
		}
	}

	return nil
}

func (d *regionDecoder) prop(p *Prop, path string) error {
	r := d.r
	var err error

	if p.ClassID, err = r.Uint32("class id"); err != nil {
		return err
	}
	if p.Name, err = r.WString("prop name"); err != nil {
		return err
	}
	for i := range p.Position {
		if p.Position[i], err = r.Float32("position"); err != nil {
			return err
		}
	}
	if p.Rotation, err = r.Float32("rotation"); err != nil {
		return err
	}
	if p.Scale, err = r.Float32("scale"); err != nil {
		return err
	}

	colorCount, err := r.Uint8("color count")
	if err != nil {
		return err
	}
	if err := d.checkCount(path, "color count", int(colorCount), 4); err != nil {
		return err
	}
	p.Colors = make([]codec.Color, colorCount)
	for i := range p.Colors {
		if p.Colors[i], err = r.Color("prop color"); err != nil {
			return err
		}
	}

	paramCount, err := r.Uint32("parameter count")
	if err != nil {
		return err
	}
	if err := d.checkCount(path, "parameter count", int(paramCount), minParameterSize); err != nil {
		return err
	}
	p.Parameters = make([]EntityParameter, paramCount)
	for i := range p.Parameters {
		ep := &p.Parameters[i]
		if ep.IsDefault, err = r.Bool("parameter default"); err != nil {
			return err
		}
		t, err := r.Int32("parameter type")
		if err != nil {
			return err
		}
		ep.Type = ParameterType(t)
		s, err := r.Int32("signal type")
		if err != nil {
			return err
		}
		ep.SignalType = SignalType(s)
		if ep.Name, err = r.WString("parameter name"); err != nil {
			return err
		}
		if ep.XML, err = r.WString("parameter xml"); err != nil {
			return err
		}
	}

	return nil
}

// Encode serializes the region in the same field order ParseRegion reads.
func (rg *Region) Encode() ([]byte, error) {
	w := codec.NewWriter()
	w.PutBytes([]byte(regionMagic))
	w.PutUint16(uint16(rg.Version))
	if err := w.PutWString(rg.Name); err != nil {
		return nil, fmt.Errorf("region name: %w", err)
	}

	w.PutUint32(uint32(len(rg.Areas)))
	for i := range rg.Areas {
		if err := encodeArea(w, rg.Version, &rg.Areas[i]); err != nil {
			return nil, fmt.Errorf("area %d: %w", i, err)
		}
	}

	return w.Bytes(), nil
}

// WriteTo writes the encoded region to w.
func (rg *Region) WriteTo(w io.Writer) (int64, error) {
	data, err := rg.Encode()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

func encodeArea(w *codec.Writer, rev Revision, a *Area) error {
	if err := w.PutWString(a.Name); err != nil {
		return err
	}
	w.PutFloat32(a.BottomLeftX)
	w.PutFloat32(a.BottomLeftY)
	w.PutUint16(a.PlaneX)
	w.PutUint16(a.PlaneY)

	w.PutUint32(uint32(len(a.AreaPlanes)))
	for i := range a.AreaPlanes {
		if err := encodeAreaPlane(w, rev, &a.AreaPlanes[i]); err != nil {
			return fmt.Errorf("area plane %d: %w", i, err)
		}
	}

	w.PutUint32(uint32(len(a.Props)))
	for i := range a.Props {
		if err := encodeProp(w, &a.Props[i]); err != nil {
			return fmt.Errorf("prop %d: %w", i, err)
		}
	}
	return nil
}

func encodeAreaPlane(w *codec.Writer, rev Revision, ap *AreaPlane) error {
	if len(ap.MaterialSlots) > 255 || len(ap.TileSlots) > 255 {
		return fmt.Errorf("slot arrays are limited to 255 entries")
	}

	if rev.HasPlaneUV() {
		w.PutUint8(ap.Version)
	}
	w.PutUint8(ap.ShowPlane)
	w.PutFloat32(ap.MinHeight)
	w.PutFloat32(ap.MaxHeight)
	w.PutBool(ap.UseTiles)

	w.PutUint8(uint8(len(ap.MaterialSlots)))
	for _, s := range ap.MaterialSlots {
		w.PutUint32(s)
	}
	if ap.UseTiles {
		w.PutUint8(uint8(len(ap.TileSlots)))
		for _, s := range ap.TileSlots {
			w.PutUint16(s)
		}
	}

	w.PutUint8(PlanesPerAreaPlane)
	for _, pl := range ap.Planes {
		w.PutFloat32(pl.Height)
		if rev.HasPlaneUV() {
			w.PutFloat32(pl.U)
			w.PutFloat32(pl.V)
		}
		w.PutColor(pl.Color)
	}
	return nil
}

func encodeProp(w *codec.Writer, p *Prop) error {
	if len(p.Colors) > 255 {
		return fmt.Errorf("prop colors are limited to 255 entries")
	}

	w.PutUint32(p.ClassID)
	if err := w.PutWString(p.Name); err != nil {
		return err
	}
	for _, v := range p.Position {
		w.PutFloat32(v)
	}
	w.PutFloat32(p.Rotation)
	w.PutFloat32(p.Scale)

	w.PutUint8(uint8(len(p.Colors)))
	for _, c := range p.Colors {
		w.PutColor(c)
	}

	w.PutUint32(uint32(len(p.Parameters)))
	for _, ep := range p.Parameters {
		w.PutBool(ep.IsDefault)
		w.PutInt32(int32(ep.Type))
		w.PutInt32(int32(ep.SignalType))
		if err := w.PutWString(ep.Name); err != nil {
			return err
		}
		if err := w.PutWString(ep.XML); err != nil {
			return err
		}
	}
	return nil
}

// ParseRegionFile parses a region file from disk.
func ParseRegionFile(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading region file: %w", err)
	}
	return ParseRegion(data)
}
