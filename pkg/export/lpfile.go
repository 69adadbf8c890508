package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/districtopt/core/program"
)

// termsPerLine keeps LP lines well below the 255 character limit of older
// readers.
const termsPerLine = 6

// WriteLP writes p in CPLEX LP format. The constant objective offset is
// emitted as a comment since not every reader accepts it.
func WriteLP(w io.Writer, p *program.Problem, title string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ %s\n", title)
	fmt.Fprintf(bw, "\\ objective offset %s\n", num(p.Offset))
	bw.WriteString("Minimize\n obj:")
	var n int
	for i, v := range p.Vars {
		if v.Cost == 0 {
			continue
		}
		writeTerm(bw, v.Cost, p.Vars[i].Name, n)
		n++
	}
	if n == 0 && len(p.Vars) > 0 {
		writeTerm(bw, 0, p.Vars[0].Name, 0)
	}
	bw.WriteString("\nSubject To\n")
	for _, r := range p.Rows {
		fmt.Fprintf(bw, " %s:", LPName(r.Name))
		for i, c := range r.Cols {
			writeTerm(bw, r.Coefs[i], p.Vars[c].Name, i)
		}
		op := "="
		if r.Sense == program.LE {
			op = "<="
		}
		fmt.Fprintf(bw, " %s %s\n", op, num(r.RHS))
	}
	bw.WriteString("Bounds\n")
	for _, v := range p.Vars {
		if v.Bounded() {
			fmt.Fprintf(bw, " %s <= %s <= %s\n", num(v.Lower), v.Name, num(v.Upper))
		} else {
			fmt.Fprintf(bw, " %s >= %s\n", v.Name, num(v.Lower))
		}
	}
	bw.WriteString("End\n")
	return bw.Flush()
}

func writeTerm(w *bufio.Writer, coef float64, name string, i int) {
	if i > 0 && i%termsPerLine == 0 {
		w.WriteString("\n   ")
	}
	sign := "+"
	if coef < 0 || (coef == 0 && math.Signbit(coef)) {
		sign = "-"
	}
	fmt.Fprintf(w, " %s %s %s", sign, num(math.Abs(coef)), name)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

// LPName maps an arbitrary row name onto the LP identifier alphabet.
func LPName(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9', r == '.':
			if i == 0 {
				b.WriteByte('r')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
