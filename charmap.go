package splitflap

// Display character codes for the split-flap board. 0 is blank; letters and
// digits follow the board's native code page. Unmapped runes render blank.
const (
	CodeBlank  = 0
	CodeDegree = 62
)

var symbolCodes = map[rune]int{
	'!':  37,
	'@':  38,
	'#':  39,
	'$':  40,
	'(':  41,
	')':  42,
	'-':  44,
	'+':  46,
	'&':  47,
	'=':  48,
	';':  49,
	':':  50,
	'\'': 52,
	'"':  53,
	'%':  54,
	',':  55,
	'.':  56,
	'/':  59,
	'?':  60,
	'°':  62,
}

// CharCode maps a single rune to its display code. Lowercase letters are
// folded to uppercase; anything unmapped comes back blank.
func CharCode(r rune) int {
	switch {
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 1
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 1
	case r >= '1' && r <= '9':
		return int(r-'1') + 27
	case r == '0':
		return 36
	case r == ' ':
		return CodeBlank
	}
	if code, ok := symbolCodes[r]; ok {
		return code
	}
	return CodeBlank
}

// RenderLine encodes s into a full board row, left-aligned and truncated to
// BoardCols cells.
func RenderLine(s string) []int {
	row := make([]int, BoardCols)
	i := 0
	for _, r := range s {
		if i >= BoardCols {
			break
		}
		row[i] = CharCode(r)
		i++
	}
	return row
}

// RenderLineCentered encodes s into a full board row, centered.
func RenderLineCentered(s string) []int {
	runes := []rune(s)
	if len(runes) > BoardCols {
		runes = runes[:BoardCols]
	}
	row := make([]int, BoardCols)
	offset := (BoardCols - len(runes)) / 2
	for i, r := range runes {
		row[offset+i] = CharCode(r)
	}
	return row
}

// BlankGrid allocates an all-blank frame.
func BlankGrid() [][]int {
	grid := make([][]int, BoardRows)
	for i := range grid {
		grid[i] = make([]int, BoardCols)
	}
	return grid
}
