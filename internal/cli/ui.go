// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Shared palette for CLI output.
var (
	Purple = lipgloss.Color("99")
	Gray   = lipgloss.Color("245")
	Teal   = lipgloss.Color("#06ffa5")

	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	valueStyle = lipgloss.NewStyle().Foreground(Teal)

	// DimStyle is used for secondary information.
	DimStyle = lipgloss.NewStyle().Foreground(Gray)
)

// PrintKV renders label/value pairs as aligned, styled lines.
func PrintKV(
	pairs [][2]string,
) {
	maxWidth := 0
	for _, pair := range pairs {
		if w := lipgloss.Width(pair[0]); w > maxWidth {
			maxWidth = w
		}
	}

	for _, pair := range pairs {
		label := labelStyle.Render(pair[0])
		pad := maxWidth - lipgloss.Width(pair[0]) + 2
		fmt.Printf("%s%*s%s\n", label, pad, "", valueStyle.Render(pair[1]))
	}
}
