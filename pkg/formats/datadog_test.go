package formats

import (
	"errors"
	"testing"

	"github.com/Faultbox/erinn/pkg/codec"
)

func createTestDataDog(t *testing.T) []byte {
	t.Helper()

	dd := NewDataDog()
	tiles := NewDataDogList("TileIndexList",
		DataDogField{"TileID", FieldInt},
		DataDogField{"TileName", FieldString},
		DataDogField{"Scale", FieldFloat},
		DataDogField{"Walkable", FieldBool},
		DataDogField{"Layer", FieldByte},
	)
	tiles.Add("grass", int32(42), "tr_grass_01", float32(0.5), true, uint8(3))
	tiles.Add("dirt", int32(43), "tr_dirt_01", float32(1), false, uint8(0))
	dd.AddList(tiles)
	dd.AddList(NewDataDogList("Empty"))

	data, err := dd.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}

func TestParseDataDog(t *testing.T) {
	dd, err := ParseDataDog(createTestDataDog(t))
	if err != nil {
		t.Fatalf("ParseDataDog failed: %v", err)
	}

	if names := dd.ListNames(); len(names) != 2 || names[0] != "TileIndexList" {
		t.Errorf("unexpected list order: %v", names)
	}

	l, err := dd.List("TileIndexList")
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(l.Objects))
	}

	grass := l.Objects[0]
	if grass.Name != "grass" {
		t.Errorf("expected object grass, got %q", grass.Name)
	}
	if grass.Int("TileID") != 42 {
		t.Errorf("expected TileID 42, got %d", grass.Int("TileID"))
	}
	if grass.Text("TileName") != "tr_grass_01" {
		t.Errorf("expected tr_grass_01, got %q", grass.Text("TileName"))
	}
	if grass.Float("Scale") != 0.5 {
		t.Errorf("expected scale 0.5, got %f", grass.Float("Scale"))
	}
	if !grass.Bool("Walkable") || l.Objects[1].Bool("Walkable") {
		t.Error("unexpected Walkable values")
	}
	if grass.Int("Layer") != 3 {
		t.Errorf("expected layer 3, got %d", grass.Int("Layer"))
	}

	// Missing fields read as zero values.
	if grass.Text("Nope") != "" || grass.Bool("Nope") || grass.Int("Nope") != 0 {
		t.Error("missing fields should read as zero values")
	}
}

func TestDataDogRequire(t *testing.T) {
	dd, err := ParseDataDog(createTestDataDog(t))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := dd.Require("TileIndexList", "Empty"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	_, err = dd.Require("TileIndexList", "MaterialList")
	if !errors.Is(err, ErrMissingTable) {
		t.Fatalf("expected ErrMissingTable, got %v", err)
	}
	var mte *MissingTableError
	if !errors.As(err, &mte) || mte.List != "MaterialList" {
		t.Errorf("expected MissingTableError for MaterialList, got %v", err)
	}
}

func TestParseDataDog_Invalid(t *testing.T) {
	if _, err := ParseDataDog([]byte("NOPE\x01\x00")); err != ErrInvalidDataDogMagic {
		t.Errorf("expected ErrInvalidDataDogMagic, got %v", err)
	}

	data := createTestDataDog(t)
	if _, err := ParseDataDog(data[:len(data)-3]); !errors.Is(err, codec.ErrFormat) {
		t.Errorf("expected ErrFormat for truncated data, got %v", err)
	}
}
