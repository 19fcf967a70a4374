package sample

import "fmt"

// Point is a location on a grid
type Point struct {
	X, Y int
}

// String implements fmt.Stringer
func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Walk visits each point in a row
func Walk(n int, visit func(Point)) {
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			visit(Point{X: i})
		}
	}
}
