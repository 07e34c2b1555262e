package descdb

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/korean"

	"github.com/Faultbox/erinn/internal/assets"
	"github.com/Faultbox/erinn/internal/datatest"
	"github.com/Faultbox/erinn/pkg/encoding"
	"github.com/Faultbox/erinn/pkg/formats"
)

func source(f *datatest.Folder) *assets.Manager {
	m := assets.NewManager()
	m.AddFS(f.FS)
	return m
}

func TestTableReplace(t *testing.T) {
	var tbl Table[string, int]
	if tbl.Loaded() {
		t.Error("new table should not be loaded")
	}
	if _, ok := tbl.Lookup("a"); ok {
		t.Error("lookup on empty table should miss")
	}

	tbl.Replace(map[string]int{"a": 1, "b": 2})
	tbl.Replace(map[string]int{"c": 3})

	if _, ok := tbl.Lookup("a"); ok {
		t.Error("Replace should drop previous entries")
	}
	if v, ok := tbl.Lookup("c"); !ok || v != 3 {
		t.Errorf("expected c=3, got %d, %v", v, ok)
	}
	if tbl.Len() != 1 || len(tbl.Keys()) != 1 {
		t.Errorf("expected 1 entry, got %d", tbl.Len())
	}

	tbl.Clear()
	if tbl.Loaded() || tbl.Len() != 0 {
		t.Error("Clear should empty the table")
	}
}

func TestPropDB(t *testing.T) {
	f := datatest.New().PropDB(
		datatest.PropClass{ClassID: 100, ClassName: "prop_tree01", StringID: "/prop/tree/"},
		datatest.PropClass{ClassID: 200, ClassName: "prop_pumpkin", StringID: "/prop/event/halloween/", UsedServer: true, Feature: "gfHalloween"},
		datatest.PropClass{ClassID: 300, ClassName: "prop_sign", StringID: "/prop/event/sign/", UsedServer: false},
	)

	db := NewPropDB(zap.NewNop())
	if err := db.Load(source(f)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if db.Len() != 3 {
		t.Fatalf("expected 3 classes, got %d", db.Len())
	}

	tree, _ := db.Lookup(100)
	if tree.ClassName != "prop_tree01" || tree.IsEvent() {
		t.Errorf("unexpected tree entry %+v", tree)
	}
	pumpkin, _ := db.Lookup(200)
	if !pumpkin.IsEvent() || pumpkin.Feature != "gfHalloween" {
		t.Errorf("expected event prop with feature, got %+v", pumpkin)
	}
	sign, _ := db.Lookup(300)
	if sign.IsEvent() {
		t.Error("event path without UsedServer is not an event prop")
	}
}

func TestMaterialDBSkipsBrokenFiles(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := datatest.New().
		Material("grass", "rs_terrain", "Grass01", "grass02").
		AddText("material/_define/material/broken.xml", "<Material Name=\"x\" RenderState=").
		AddText("material/_define/material/norender.xml", "<Material Name=\"x\"/>").
		AddText("material/_define/material/readme.txt", "ignored")

	db := NewMaterialDB(zap.New(core))
	res := db.Load(source(f))

	if res.Files != 3 || res.Skipped != 2 {
		t.Errorf("expected 3 files / 2 skipped, got %+v", res)
	}
	if logs.FilterMessage("skipping descriptor file").Len() != 2 {
		t.Errorf("expected 2 skip warnings, got %d", logs.Len())
	}

	m, ok := db.ByTexture("GRASS01")
	if !ok {
		t.Fatal("expected case-insensitive texture lookup")
	}
	if m.Name != "grass" || m.RenderState != "rs_terrain" || !m.CastShadow || m.IsGrass {
		t.Errorf("unexpected material %+v", m)
	}
	if m2, _ := db.ByTexture("grass02"); m2 != m {
		t.Error("aliases should share one entry")
	}
}

func TestMaterialDBCharsets(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="%s"?>
<Material Name="%s" RenderState="rs_terrain">
  <TextureDesc Name="%s"/>
</Material>
`
	wide, err := encoding.StringToUTF16LE(fmt.Sprintf(doc, "utf-16", "grass", "grass01"))
	if err != nil {
		t.Fatal(err)
	}
	legacy, err := korean.EUCKR.NewEncoder().String(fmt.Sprintf(doc, "euc-kr", "잔디", "dirt01"))
	if err != nil {
		t.Fatal(err)
	}

	f := datatest.New().
		Add(MaterialDir+"/grass.xml", append([]byte{0xFF, 0xFE}, wide...)).
		AddText(MaterialDir+"/rock.xml", fmt.Sprintf(doc, "utf-16", "rock", "rock01")).
		AddText(MaterialDir+"/dirt.xml", legacy)

	db := NewMaterialDB(zap.NewNop())
	res := db.Load(source(f))
	if res.Files != 3 || res.Skipped != 0 {
		t.Fatalf("expected 3 files / 0 skipped, got %+v", res)
	}

	tests := []struct {
		texture string
		name    string
	}{
		{"grass01", "grass"},
		{"rock01", "rock"},
		{"dirt01", "잔디"},
	}
	for _, tt := range tests {
		m, ok := db.ByTexture(tt.texture)
		if !ok {
			t.Errorf("%s: material not found", tt.texture)
			continue
		}
		if m.Name != tt.name || m.RenderState != "rs_terrain" {
			t.Errorf("%s: unexpected material %+v", tt.texture, m)
		}
	}
}

func TestPropDBWide(t *testing.T) {
	wide, err := encoding.StringToUTF16LE(`<?xml version="1.0" encoding="utf-16"?>
<PropDB>
  <PropClass ClassID="7" ClassName="prop_well" StringID="/prop/well/"/>
</PropDB>
`)
	if err != nil {
		t.Fatal(err)
	}
	f := datatest.New().Add(PropDBFile, append([]byte{0xFF, 0xFE}, wide...))

	db := NewPropDB(zap.NewNop())
	if err := db.Load(source(f)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if e, ok := db.Lookup(7); !ok || e.ClassName != "prop_well" {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestParseRenderState(t *testing.T) {
	f := datatest.New().RenderState("rs_terrain", "D3DCULL_NONE", true)
	rs, err := ParseRenderState(f.FS["material/_define/render_state/rs_terrain.xml"].Data)
	if err != nil {
		t.Fatalf("ParseRenderState failed: %v", err)
	}
	if rs.Name != "rs_terrain" || rs.TextureFactor != "0xff808080" {
		t.Errorf("unexpected header %+v", rs)
	}
	if !rs.ZDepthTest || !rs.ZWrite || rs.AlphaTest || !rs.Blend || !rs.Lighting {
		t.Errorf("unexpected flags %+v", rs)
	}
	if rs.BlendSrc != "D3DBLEND_SRCALPHA" || rs.MatDiffuse != [4]float32{1, 1, 1, 1} {
		t.Errorf("unexpected blend or diffuse %+v", rs)
	}
	if !rs.DoubleSided() {
		t.Error("D3DCULL_NONE should be double sided")
	}

	if _, err := ParseRenderState([]byte("<RenderState/>")); err == nil {
		t.Error("expected error without Name/TextureFactor")
	}
}

func TestRenderTables(t *testing.T) {
	rows := []datatest.TexMat{{Texture: "Water01", Material: "water", RenderState: "rs_water", Blend: true}}
	rt := NewRenderTables(zap.NewNop())
	if err := rt.Load(source(datatest.New().RenderData(rows...))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tm, ok := rt.TexMat("water01")
	if !ok || tm.Material != "water" {
		t.Fatalf("expected texture mapping, got %+v, %v", tm, ok)
	}
	mat, ok := rt.Material(tm.Material)
	if !ok || mat.RenderState != "rs_water" {
		t.Fatalf("expected material row, got %+v", mat)
	}
	rs, ok := rt.RenderState(mat.RenderState)
	if !ok || !rs.EnableAlphaBlend || rs.Culling != 1 {
		t.Fatalf("expected render state row, got %+v", rs)
	}
	if m, s, tm := rt.Counts(); m != 1 || s != 1 || tm != 1 {
		t.Errorf("expected one row per table, got %d/%d/%d", m, s, tm)
	}
}

func TestRenderTablesMissingList(t *testing.T) {
	rows := []datatest.TexMat{{Texture: "a", Material: "m", RenderState: "rs"}}
	rt := NewRenderTables(zap.NewNop())
	if err := rt.Parse(datatest.RenderData(rows)); err != nil {
		t.Fatal(err)
	}

	for _, missing := range []string{MaterialListName, RenderStateListName, TexMatListName} {
		t.Run(missing, func(t *testing.T) {
			f := datatest.New().Add(RenderFile, datatest.RenderData(nil, missing))
			err := rt.Load(source(f))
			if !errors.Is(err, formats.ErrMissingTable) {
				t.Fatalf("expected ErrMissingTable, got %v", err)
			}
			var mte *formats.MissingTableError
			if !errors.As(err, &mte) || mte.List != missing {
				t.Errorf("expected missing list %s, got %v", missing, err)
			}
			if _, ok := rt.TexMat("a"); !ok {
				t.Error("failed load must keep previous tables")
			}
		})
	}
}

func TestTileIndex(t *testing.T) {
	f := datatest.New().TileIndex(map[uint32]string{1: "tile_grass", 7: "tile_rock"})
	ti := NewTileIndex(zap.NewNop())
	if err := ti.Load(source(f)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if e, ok := ti.Lookup(7); !ok || e.TileName != "tile_rock" {
		t.Errorf("expected tile_rock, got %+v", e)
	}

	wrong := datatest.New().Add(TileIndexFile, datatest.RenderData(nil))
	if err := ti.Load(source(wrong)); !errors.Is(err, formats.ErrMissingTable) {
		t.Errorf("expected ErrMissingTable, got %v", err)
	}
	if ti.Len() != 2 {
		t.Error("failed load must keep previous index")
	}
}

func TestFeatures(t *testing.T) {
	f := datatest.New().AddText(FeaturesFile, `<Features>
  <Setting Name="USA" Locale="usa"/>
  <Setting Name="KOR" Locale="korea"/>
  <Feature Name="gfBase" Default="true"/>
  <Feature Name="gfHalloween" Enable="USA,KOR(test)"/>
  <Feature Name="gfRetired" Default="true" Disable="usa"/>
  <Feature Name="gfDevOnly" Enable="USA(dev)"/>
</Features>`)

	feats := NewFeatures(zap.NewNop())
	if err := feats.Load(source(f)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if feats.IsEnabled("gfHalloween") {
		t.Error("no setting selected: only defaults apply")
	}
	if !feats.IsEnabled("gfBase") {
		t.Error("default feature should be on")
	}

	if err := feats.SelectSetting("USA", false, false); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		want bool
	}{
		{"gfBase", true},
		{"GFHALLOWEEN", true},
		{"gfRetired", false},
		{"gfDevOnly", false},
		{"gfUnknown", false},
	}
	for _, tt := range tests {
		if got := feats.IsEnabled(tt.name); got != tt.want {
			t.Errorf("IsEnabled(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if err := feats.SelectSetting("KOR", true, false); err != nil {
		t.Fatal(err)
	}
	if !feats.IsEnabled("gfHalloween") {
		t.Error("test mode should enable KOR(test)")
	}
	if err := feats.SelectSetting("JPN", false, false); err == nil {
		t.Error("expected error for unknown setting")
	}
}

func TestLocalization(t *testing.T) {
	wide, err := encoding.StringToUTF16LE("10\tOak Tree\r\n// comment\r\n11\tPine\r\n")
	if err != nil {
		t.Fatal(err)
	}
	f := datatest.New().
		Add("local/xml/propdb.english.txt", append([]byte{0xFF, 0xFE}, wide...)).
		AddText("local/world.txt", "1\tUladh\nbroken line\n")

	l := NewLocalization(zap.NewNop())
	res := l.Load(source(f))
	if res.Files != 2 || res.Skipped != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	tests := []struct {
		in, want string
	}{
		{"_LT[xml.propdb.10]", "Oak Tree"},
		{"_LT[xml.propdb.11]", "Pine"},
		{"_LT[world.1]", "Uladh"},
		{"_LT[xml.propdb.99]", "_LT[xml.propdb.99]"},
		{"plain name", "plain name"},
		{"_LT[unterminated", "_LT[unterminated"},
	}
	for _, tt := range tests {
		if got := l.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMiniMapInfo(t *testing.T) {
	f := datatest.New().AddText(MiniMapInfoFile, `<MiniMapInfo>
  <Map Name="tir_chonaill" File="minimap/tir.dds" MinX="0" MinY="0" MaxX="64000" MaxY="64000"/>
</MiniMapInfo>`)
	mi := NewMiniMapInfo(zap.NewNop())
	if err := mi.Load(source(f)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e, ok := mi.Lookup("tir_chonaill")
	if !ok || e.File != "minimap/tir.dds" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !e.Contains(32000, 100) || e.Contains(-1, 0) {
		t.Error("unexpected bounds check")
	}
}

func TestLoadAllIsolation(t *testing.T) {
	f := datatest.New().
		PropDB(datatest.PropClass{ClassID: 1, ClassName: "prop_a"}).
		Material("grass", "rs_terrain", "grass01").
		TileIndex(map[uint32]string{1: "grass01"}).
		RenderData(datatest.TexMat{Texture: "t", Material: "m", RenderState: "rs"})

	dbs := New(zap.NewNop())
	report := dbs.LoadAll(source(f), FeatureSelection{Setting: "USA"})
	if !report.OK() {
		t.Fatalf("unexpected failures: %v", report.Failed)
	}
	sort.Strings(report.Missing)
	if len(report.Missing) != 5 {
		t.Errorf("expected 5 missing sources, got %v", report.Missing)
	}

	// Second load: propdb is corrupt, render.data lacks a list.
	f.AddText(PropDBFile, "<PropDB><PropClass").
		Add(RenderFile, datatest.RenderData(nil, TexMatListName)).
		TileIndex(map[uint32]string{2: "rock01"})

	report = dbs.LoadAll(source(f), FeatureSelection{})
	if len(report.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %v", report.Failed)
	}
	if !errors.Is(report.Failed[RenderFile], formats.ErrMissingTable) {
		t.Errorf("expected MissingTableError for render.data, got %v", report.Failed[RenderFile])
	}

	if _, ok := dbs.Props.Lookup(1); !ok {
		t.Error("failed propdb load must keep previous entries")
	}
	if _, ok := dbs.Render.TexMat("t"); !ok {
		t.Error("failed render.data load must keep previous tables")
	}
	if _, ok := dbs.Tiles.Lookup(2); !ok {
		t.Error("sibling tile index should have reloaded")
	}
	if _, ok := dbs.Tiles.Lookup(1); ok {
		t.Error("tile index reload should replace, not merge")
	}
	if _, ok := dbs.Materials.ByTexture("grass01"); !ok {
		t.Error("material database should still be loaded")
	}

	dbs.Clear()
	if dbs.Props.Loaded() || dbs.Render.Loaded() {
		t.Error("Clear should empty every database")
	}
}

func TestLoadAllClearsMissingSources(t *testing.T) {
	first := datatest.New().
		PropDB(datatest.PropClass{ClassID: 1, ClassName: "prop_a"}).
		Material("grass", "rs_terrain", "grass01").
		TileIndex(map[uint32]string{1: "grass01"}).
		RenderData(datatest.TexMat{Texture: "t", Material: "m", RenderState: "rs"})

	dbs := New(zap.NewNop())
	if report := dbs.LoadAll(source(first), FeatureSelection{}); !report.OK() {
		t.Fatalf("unexpected failures: %v", report.Failed)
	}

	second := datatest.New().Material("rock", "rs_terrain", "rock01")
	report := dbs.LoadAll(source(second), FeatureSelection{})
	if len(report.Missing) != 8 {
		t.Errorf("expected 8 missing sources, got %v", report.Missing)
	}

	if _, ok := dbs.Tiles.Lookup(1); ok {
		t.Error("tile index from the previous root should be gone")
	}
	if _, ok := dbs.Render.TexMat("t"); ok {
		t.Error("render tables from the previous root should be gone")
	}
	if dbs.Props.Loaded() || dbs.Tiles.Loaded() || dbs.Render.Loaded() {
		t.Error("databases without a source should be empty")
	}
	if _, ok := dbs.Materials.ByTexture("grass01"); ok {
		t.Error("material directory should have been replaced")
	}
	if _, ok := dbs.Materials.ByTexture("rock01"); !ok {
		t.Error("expected material from the new root")
	}
}
