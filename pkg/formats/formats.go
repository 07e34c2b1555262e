// Package formats provides parsers for the client's world data containers.
package formats

// Note: regions (terrain grids and props) are implemented in region.go
// Note: PMG meshes and SET placement lists are in pmg.go and set.go
// Note: the DataDog tabular container is in datadog.go
// Note: compressed textures (DDS) are in dds.go
