package mesh

import (
	"fmt"
)

// UnitInterval builds a uniform P1 mesh of [0,1] with n line cells, n+1
// nodes, and a dof block per node. The two end facets are exterior.
func UnitInterval(n, blockSize int) (*Mesh, error) {
	if n < 1 {
		return nil, fmt.Errorf("interval mesh needs at least 1 cell, got %d", n)
	}
	m := &Mesh{
		NumCells:    n,
		DofsPerCell: 2,
		CellDofs:    make([]int, 2*n),
		BlockSize:   blockSize,
		GeomDim:     1,
		Coords:      make([]float64, n+1),
		Index:       SerialIndexMap(n + 1),
	}
	for c := 0; c < n; c++ {
		m.CellDofs[2*c] = c
		m.CellDofs[2*c+1] = c + 1
	}
	for i := 0; i <= n; i++ {
		m.Coords[i] = float64(i) / float64(n)
	}
	m.Facets = []Facet{
		{Cell: 0, LocalFacet: 0},
		{Cell: n - 1, LocalFacet: 1},
	}
	return m, m.Validate()
}

// UnitSquare builds a uniform P1 triangle mesh of [0,1]^2 with nx*ny quads
// split into two triangles each. Nodes are numbered row-major; local facet
// k of a triangle is the edge between local vertices k and (k+1)%3.
func UnitSquare(nx, ny, blockSize int) (*Mesh, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("square mesh needs at least 1x1 cells, got %dx%d", nx, ny)
	}
	numNodes := (nx + 1) * (ny + 1)
	numCells := 2 * nx * ny
	m := &Mesh{
		NumCells:    numCells,
		DofsPerCell: 3,
		CellDofs:    make([]int, 3*numCells),
		BlockSize:   blockSize,
		GeomDim:     2,
		Coords:      make([]float64, 2*numNodes),
		Index:       SerialIndexMap(numNodes),
	}

	node := func(i, j int) int { return j*(nx+1) + i }
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			v := node(i, j)
			m.Coords[2*v] = float64(i) / float64(nx)
			m.Coords[2*v+1] = float64(j) / float64(ny)
		}
	}

	c := 0
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v00, v10 := node(i, j), node(i+1, j)
			v01, v11 := node(i, j+1), node(i+1, j+1)
			m.CellDofs[3*c], m.CellDofs[3*c+1], m.CellDofs[3*c+2] = v00, v10, v11
			c++
			m.CellDofs[3*c], m.CellDofs[3*c+1], m.CellDofs[3*c+2] = v00, v11, v01
			c++
		}
	}

	m.Facets = exteriorEdges(m)
	return m, m.Validate()
}

// exteriorEdges finds edges referenced by exactly one triangle.
func exteriorEdges(m *Mesh) []Facet {
	type edgeUse struct {
		cell, local int
		count       int
	}
	edges := make(map[[2]int]*edgeUse)
	for c := 0; c < m.NumCells; c++ {
		blocks := m.CellBlocks(c)
		for k := 0; k < 3; k++ {
			a, b := blocks[k], blocks[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if u, ok := edges[key]; ok {
				u.count++
			} else {
				edges[key] = &edgeUse{cell: c, local: k, count: 1}
			}
		}
	}
	var facets []Facet
	// Deterministic order: walk cells again rather than ranging the map
	for c := 0; c < m.NumCells; c++ {
		blocks := m.CellBlocks(c)
		for k := 0; k < 3; k++ {
			a, b := blocks[k], blocks[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			u := edges[[2]int{a, b}]
			if u.count == 1 && u.cell == c && u.local == k {
				facets = append(facets, Facet{Cell: c, LocalFacet: k})
			}
		}
	}
	return facets
}
