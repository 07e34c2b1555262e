package material

import (
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/erinn/pkg/formats"
)

// FindTexture locates the file for a texture name: an explicit data path,
// then material/terrain/<name>/<name>.<ext>, then each search directory
// under material/ walked recursively. First match wins.
func (r *Resolver) FindTexture(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	ext := "." + r.opts.TextureExt

	if strings.ContainsRune(name, '/') && strings.EqualFold(path.Ext(name), ext) && r.files.Exists(name) {
		return name, true
	}

	fileName := name + ext
	terrain := path.Join("material", "terrain", name, fileName)
	if r.files.Exists(terrain) {
		return terrain, true
	}

	for _, dir := range r.opts.SearchDirs {
		if p, ok := r.files.Find(path.Join("material", dir), fileName); ok {
			return p, true
		}
	}
	return "", false
}

// texture returns the decoded texture for name, loading it at most once
// per session. Misses are recorded by the load that discovers them.
func (r *Resolver) texture(name string) *Texture {
	key := strings.ToLower(name)

	r.mu.Lock()
	if t, ok := r.textures[key]; ok {
		r.mu.Unlock()
		return t
	}
	r.mu.Unlock()

	v, _, _ := r.group.Do("tex:"+key, func() (any, error) {
		r.mu.Lock()
		if t, ok := r.textures[key]; ok {
			r.mu.Unlock()
			return t, nil
		}
		r.mu.Unlock()

		t, miss := r.loadTexture(name)
		if miss != nil {
			r.recordMiss(*miss)
		}

		r.mu.Lock()
		r.textures[key] = t
		r.mu.Unlock()
		return t, nil
	})
	return v.(*Texture)
}

func (r *Resolver) loadTexture(name string) (*Texture, *ResolutionMiss) {
	p, ok := r.FindTexture(name)
	if !ok {
		return nil, &ResolutionMiss{Name: name, Stage: StageTexture, Reason: "no texture file found"}
	}

	data, err := r.files.Load(p)
	if err != nil {
		return nil, &ResolutionMiss{Name: name, Stage: StageTexture, Reason: err.Error()}
	}
	dds, err := formats.ParseDDS(data)
	if err != nil {
		return nil, &ResolutionMiss{Name: name, Stage: StageTexture, Reason: err.Error()}
	}

	r.log.Debug("texture loaded",
		zap.String("texture", name),
		zap.String("path", p),
		zap.Int("width", dds.Width),
		zap.Int("height", dds.Height),
		zap.Stringer("format", dds.Format))
	return &Texture{Name: name, Path: p, DDS: dds}, nil
}
