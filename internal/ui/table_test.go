package ui

import (
	"testing"

	"github.com/charmbracelet/bubbles/table"
	"github.com/stretchr/testify/assert"
)

func TestNewTable(t *testing.T) {
	columns := []TableColumn{
		{Title: "Name", Width: 20},
		{Title: "Status", Width: 10},
	}
	rows := []table.Row{
		{"item1", "ok"},
		{"item2", "error"},
	}

	tbl := NewTable(columns, rows)

	// Table should be created without panicking
	view := tbl.View()
	assert.NotEmpty(t, view)
	assert.Contains(t, view, "Name")
	assert.Contains(t, view, "Status")
	assert.Contains(t, view, "item1")
	assert.Contains(t, view, "item2")
}

func TestNewTable_EmptyRows(t *testing.T) {
	columns := []TableColumn{
		{Title: "Name", Width: 20},
	}
	rows := []table.Row{}

	tbl := NewTable(columns, rows)
	view := tbl.View()

	assert.NotEmpty(t, view)
	assert.Contains(t, view, "Name")
}

func TestRenderSimpleTable(t *testing.T) {
	columns := []TableColumn{
		{Title: "Host", Width: 15},
		{Title: "Status", Width: 10},
	}
	rows := [][]string{
		{"server1", "online"},
		{"server2", "offline"},
	}

	output := RenderSimpleTable(columns, rows)

	assert.Contains(t, output, "Host")
	assert.Contains(t, output, "Status")
	assert.Contains(t, output, "server1")
	assert.Contains(t, output, "server2")
	assert.Contains(t, output, "online")
	assert.Contains(t, output, "offline")
}

func TestRenderSimpleTable_EmptyRows(t *testing.T) {
	columns := []TableColumn{
		{Title: "Name", Width: 20},
	}
	rows := [][]string{}

	output := RenderSimpleTable(columns, rows)
	assert.Empty(t, output)
}

func TestRenderHostStatusTable(t *testing.T) {
	rows := []HostStatusRow{
		{OK: true, Name: "dev-vm", Target: "ubuntu@10.0.0.5:22", Latency: "12ms"},
		{OK: false, Name: "build", Target: "root@build-box:2222", Latency: "connection refused"},
	}

	output := RenderHostStatusTable(rows)

	assert.Contains(t, output, "HOST")
	assert.Contains(t, output, "TARGET")
	assert.Contains(t, output, "LATENCY")
	assert.Contains(t, output, "dev-vm")
	assert.Contains(t, output, "ubuntu@10.0.0.5:22")
	assert.Contains(t, output, "12ms")
	assert.Contains(t, output, SymbolFail)
	assert.Contains(t, output, "connection refused")
}

func TestRenderHostStatusTable_EmptyRows(t *testing.T) {
	assert.Equal(t, "No hosts configured", RenderHostStatusTable(nil))
}

func TestRenderDoctorTable(t *testing.T) {
	rows := []DoctorCheckRow{
		{Status: "pass", Category: "SSH", Message: "SSH key found"},
		{Status: "warn", Category: "SSH", Message: "Multiple keys", Suggestion: "Consider using ssh-agent"},
		{Status: "fail", Category: "Config", Message: "Config missing", Suggestion: "Run vmprov init"},
	}

	output := RenderDoctorTable(rows)

	assert.Contains(t, output, "SSH")
	assert.Contains(t, output, "Config")
	assert.Contains(t, output, "SSH key found")
	assert.Contains(t, output, "Multiple keys")
	assert.Contains(t, output, "Consider using ssh-agent")
	assert.Contains(t, output, "Config missing")
	assert.Contains(t, output, "Run vmprov init")
}

func TestRenderDoctorTable_EmptyRows(t *testing.T) {
	rows := []DoctorCheckRow{}
	output := RenderDoctorTable(rows)
	assert.Equal(t, "No checks to display", output)
}

func TestRenderDoctorTable_GroupsByCategory(t *testing.T) {
	rows := []DoctorCheckRow{
		{Status: "pass", Category: "Cat1", Message: "Check 1"},
		{Status: "pass", Category: "Cat2", Message: "Check 2"},
		{Status: "pass", Category: "Cat1", Message: "Check 3"},
	}

	output := RenderDoctorTable(rows)

	// Categories should appear in order they were first seen
	cat1First := output[:len(output)/2]
	cat2Second := output[len(output)/2:]

	// Cat1 should appear before Cat2
	assert.Contains(t, cat1First, "Cat1")
	// Both Cat1 checks should be grouped
	assert.Contains(t, output, "Check 1")
	assert.Contains(t, output, "Check 3")
	assert.Contains(t, cat2Second, "Cat2")
}

func TestRenderDoctorTable_NoSuggestionForPass(t *testing.T) {
	rows := []DoctorCheckRow{
		{Status: "pass", Category: "Test", Message: "All good", Suggestion: "This should not appear"},
	}

	output := RenderDoctorTable(rows)

	assert.Contains(t, output, "All good")
	assert.NotContains(t, output, "This should not appear")
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "shorter than width",
			input:    "foo",
			width:    5,
			expected: "foo  ",
		},
		{
			name:     "equal to width",
			input:    "foobar",
			width:    6,
			expected: "foobar",
		},
		{
			name:     "longer than width",
			input:    "foobar",
			width:    3,
			expected: "foobar",
		},
		{
			name:     "empty string",
			input:    "",
			width:    3,
			expected: "   ",
		},
		{
			name:     "zero width",
			input:    "foo",
			width:    0,
			expected: "foo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padRight(tt.input, tt.width)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestTableColumn(t *testing.T) {
	col := TableColumn{Title: "Test", Width: 25}
	assert.Equal(t, "Test", col.Title)
	assert.Equal(t, 25, col.Width)
}
