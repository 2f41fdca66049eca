package scene

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultAssetScale is the uniform scale applied to the jewelry model
const DefaultAssetScale = 0.5

// LoadAsset reads a glTF or GLB jewelry model and flattens all of its node
// meshes into a single triangle list in model space, multiplied by scale.
// Triangles take the base colour of their material, or gold when there is
// none.
func LoadAsset(path string, scale float64) (*Mesh, error) {

	doc, err := gltf.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening asset %s: %w", path, err)
	}

	if scale <= 0 {
		scale = DefaultAssetScale
	}

	m := &Mesh{Name: filepath.Base(path)}
	root := affine{
		cols: [3]r3.Vec{{X: scale}, {Y: scale}, {Z: scale}},
	}

	for _, n := range rootNodes(doc) {
		if err := addNode(doc, n, root, m, 0); err != nil {
			return nil, fmt.Errorf("error reading asset %s: %w", path, err)
		}
	}

	if len(m.Triangles) == 0 {
		return nil, fmt.Errorf("asset %s contains no triangle meshes", path)
	}

	return m, nil
}

// rootNodes returns the nodes of the default scene, or every node that is not
// a child when the document has no scenes
func rootNodes(doc *gltf.Document) []int {

	if len(doc.Scenes) > 0 {
		idx := 0

		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}

		return doc.Scenes[idx].Nodes
	}

	child := make(map[int]bool)

	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}

	roots := make([]int, 0, len(doc.Nodes))

	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}

	return roots
}

// maxNodeDepth guards against cyclic node hierarchies in malformed files
const maxNodeDepth = 64

// addNode appends the triangles of node idx and its children to m
func addNode(doc *gltf.Document, idx int, parent affine, m *Mesh, depth int) error {

	if idx < 0 || idx >= len(doc.Nodes) {
		return fmt.Errorf("node index %d out of range", idx)
	}

	if depth > maxNodeDepth {
		return fmt.Errorf("node hierarchy deeper than %d", maxNodeDepth)
	}

	node := doc.Nodes[idx]
	world := nodeTransform(node).then(parent)

	if node.Mesh != nil {
		if *node.Mesh >= len(doc.Meshes) {
			return fmt.Errorf("node %d mesh index %d out of range", idx, *node.Mesh)
		}

		if err := addMesh(doc, doc.Meshes[*node.Mesh], world, m); err != nil {
			return err
		}
	}

	for _, c := range node.Children {
		if err := addNode(doc, c, world, m, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// nodeTransform returns the local transform of a node, its matrix when set
// otherwise its translation, rotation and scale
func nodeTransform(n *gltf.Node) affine {

	if mat := n.MatrixOrDefault(); mat != gltf.DefaultMatrix {
		return fromMatrix(mat)
	}

	return trs(n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault())
}

// addMesh appends the triangle primitives of a glTF mesh
func addMesh(doc *gltf.Document, mesh *gltf.Mesh, world affine, m *Mesh) error {

	for _, prim := range mesh.Primitives {

		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]

		if !ok || posIdx >= len(doc.Accessors) {
			continue
		}

		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)

		if err != nil {
			return fmt.Errorf("error reading positions: %w", err)
		}

		var indices []uint32

		if prim.Indices != nil && *prim.Indices < len(doc.Accessors) {
			indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)

			if err != nil {
				return fmt.Errorf("error reading indices: %w", err)
			}
		} else {
			indices = make([]uint32, len(positions))

			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		clr := materialColor(doc, prim.Material)

		vertex := func(i uint32) r3.Vec {
			p := positions[i]
			return world.apply(r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])})
		}

		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]

			if int(a) >= len(positions) || int(b) >= len(positions) ||
				int(c) >= len(positions) {
				return fmt.Errorf("vertex index out of range in mesh %q", mesh.Name)
			}

			m.Triangles = append(m.Triangles, Triangle{
				A:     vertex(a),
				B:     vertex(b),
				C:     vertex(c),
				Color: clr,
			})
		}
	}

	return nil
}

// materialColor returns the base colour factor of a material
func materialColor(doc *gltf.Document, idx *int) color.RGBA {

	if idx == nil || *idx >= len(doc.Materials) {
		return GoldColor
	}

	pbr := doc.Materials[*idx].PBRMetallicRoughness

	if pbr == nil || pbr.BaseColorFactor == nil {
		return GoldColor
	}

	f := *pbr.BaseColorFactor
	channel := func(v float64) uint8 {
		return uint8(math.Round(clamp(v, 0, 1) * 255))
	}

	return color.RGBA{R: channel(f[0]), G: channel(f[1]), B: channel(f[2]), A: 255}
}
