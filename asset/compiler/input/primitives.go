package input

import (
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/types"
)

// Generate the 12 triangles of an axis-aligned cube centered at the origin.
func CubeTriangles(size float32) []scene.Triangle {
	h := size * 0.5
	corners := [8]types.Vec3{
		{-h, -h, -h}, {h, -h, -h}, {h, h, -h}, {-h, h, -h},
		{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h},
	}
	faces := [6][4]int{
		{0, 3, 2, 1}, // -z
		{4, 5, 6, 7}, // +z
		{0, 4, 7, 3}, // -x
		{1, 2, 6, 5}, // +x
		{0, 1, 5, 4}, // -y
		{3, 7, 6, 2}, // +y
	}

	tris := make([]scene.Triangle, 0, 12)
	for _, f := range faces {
		tris = append(tris, quadTriangles(corners[f[0]], corners[f[1]], corners[f[2]], corners[f[3]])...)
	}
	return tris
}

// Generate the 2 triangles of a unit quad in the XZ plane facing +Y.
func QuadTriangles(size float32) []scene.Triangle {
	h := size * 0.5
	return quadTriangles(
		types.Vec3{-h, 0, -h},
		types.Vec3{-h, 0, h},
		types.Vec3{h, 0, h},
		types.Vec3{h, 0, -h},
	)
}

func quadTriangles(a, b, c, d types.Vec3) []scene.Triangle {
	var n types.Vec3
	return []scene.Triangle{
		scene.NewTriangle(a, b, c, n, n, n),
		scene.NewTriangle(a, c, d, n, n, n),
	}
}
