// Package card models a 5x5 bingo card and its win patterns.
package card

import (
	"fmt"
	"math/rand"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

const (
	// Side is the number of rows and columns.
	Side = 5
	// Cells is the number of cells on a card.
	Cells = Side * Side
	// Center is the index of the free cell.
	Center = Cells / 2
	// Free is the value stored in the free cell.
	Free = 0

	numbersPerColumn = 15
)

var letters = [Side]string{"B", "I", "N", "G", "O"}

// Card is a row-major 5x5 grid; column c holds numbers 15c+1..15c+15.
type Card [Cells]int

// FromSlice validates backend card data.
func FromSlice(cells []int) (Card, error) {
	var c Card
	if len(cells) != Cells {
		return c, fmt.Errorf("%w: %d cells", model.ErrInvalidCard, len(cells))
	}
	copy(c[:], cells)
	if err := c.Validate(); err != nil {
		return Card{}, err
	}
	return c, nil
}

// Validate checks ranges, columns, the free cell and duplicates.
func (c Card) Validate() error {
	seen := make(map[int]bool, Cells)
	for i, n := range c {
		if i == Center {
			if n != Free {
				return fmt.Errorf("%w: centre cell is %d", model.ErrInvalidCard, n)
			}
			continue
		}
		if n < model.MinNumber || n > model.MaxNumber {
			return fmt.Errorf("%w: cell %d holds %d", model.ErrInvalidCard, i, n)
		}
		if col := columnOf(n); col != i%Side {
			return fmt.Errorf("%w: %d is not in column %s", model.ErrInvalidCard, n, letters[i%Side])
		}
		if seen[n] {
			return fmt.Errorf("%w: %d repeated", model.ErrInvalidCard, n)
		}
		seen[n] = true
	}
	return nil
}

// Slice returns the cells as a plain slice.
func (c Card) Slice() []int {
	return append([]int(nil), c[:]...)
}

// Letter returns the column letter for a called number, or "" if out of range.
func Letter(n int) string {
	if n < model.MinNumber || n > model.MaxNumber {
		return ""
	}
	return letters[columnOf(n)]
}

// Label renders a called number with its letter, e.g. "G 52".
func Label(n int) string {
	return fmt.Sprintf("%s %d", Letter(n), n)
}

func columnOf(n int) int {
	return (n - 1) / numbersPerColumn
}

// Generate deals a random card.
func Generate(rng *rand.Rand) Card {
	var c Card
	for col := 0; col < Side; col++ {
		base := col*numbersPerColumn + 1
		perm := rng.Perm(numbersPerColumn)
		for row := 0; row < Side; row++ {
			c[row*Side+col] = base + perm[row]
		}
	}
	c[Center] = Free
	return c
}

// Marks are the cells a player has daubed.
type Marks [Cells]bool

// MarksFromSlice converts wire marks; extra or missing entries are an error.
func MarksFromSlice(in []bool) (Marks, error) {
	var m Marks
	if len(in) != Cells {
		return m, fmt.Errorf("%w: %d marks", model.ErrInvalidCard, len(in))
	}
	copy(m[:], in)
	return m, nil
}

// Toggle flips cell i. The free cell cannot be toggled.
func (m *Marks) Toggle(i int) bool {
	if i < 0 || i >= Cells || i == Center {
		return false
	}
	m[i] = !m[i]
	return true
}

// Slice returns the marks as a plain slice.
func (m Marks) Slice() []bool {
	return append([]bool(nil), m[:]...)
}

// Wins reports whether marks on c form the winning pattern. A mark only
// counts when its number has been called; the free cell always counts.
func Wins(c Card, m Marks, called []int, wt model.WinType) bool {
	drawn := make(map[int]bool, len(called))
	for _, n := range called {
		drawn[n] = true
	}
	hit := func(i int) bool {
		return i == Center || (m[i] && drawn[c[i]])
	}

	if wt == model.WinBlackout {
		for i := 0; i < Cells; i++ {
			if !hit(i) {
				return false
			}
		}
		return true
	}

	for _, line := range lines {
		ok := true
		for _, i := range line {
			if !hit(i) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

var lines = func() [][Side]int {
	var out [][Side]int
	for r := 0; r < Side; r++ {
		var row, col [Side]int
		for k := 0; k < Side; k++ {
			row[k] = r*Side + k
			col[k] = k*Side + r
		}
		out = append(out, row, col)
	}
	var d1, d2 [Side]int
	for k := 0; k < Side; k++ {
		d1[k] = k*Side + k
		d2[k] = k*Side + (Side - 1 - k)
	}
	return append(out, d1, d2)
}()
