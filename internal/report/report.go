// Package report renders operator-facing tables and sends the optional
// email summaries some commands support.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
)

// ComputerTable renders one row per asset-database computer.
func ComputerTable(w io.Writer, computers []glpi.Computer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Serial", "UUID"})
	for _, c := range computers {
		table.Append([]string{strconv.Itoa(c.ID), c.Name, c.Serial, c.UUID})
	}
	table.Render()
}

// ReservationRow is one resolved reservation for display.
type ReservationRow struct {
	Machine string
	User    string
	Begin   string
	End     string
	Comment string
}

// ReservationTable renders resolved reservations.
func ReservationTable(w io.Writer, rows []ReservationRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Machine", "User", "Begin", "End", "Comment"})
	for _, r := range rows {
		table.Append([]string{r.Machine, r.User, r.Begin, r.End, r.Comment})
	}
	table.Render()
}

// MachineTable renders one row per machine record.
func MachineTable(w io.Writer, records []inventory.MachineRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Identifier", "Hostname", "Sockets", "Cores", "RAM MB", "Disks", "Reservable"})
	for _, rec := range records {
		table.Append([]string{
			rec.Identifier,
			rec.Hostname,
			strconv.Itoa(rec.Sockets),
			strconv.Itoa(rec.Cores),
			strconv.FormatInt(rec.RAMMB, 10),
			strconv.Itoa(len(rec.Disks)),
			strconv.FormatBool(rec.Reservable),
		})
	}
	table.Render()
}

// DiffTable renders the two one-sided results of a reconciliation. labelA
// and labelB name the inventories, for example "glpi" and "dcim".
func DiffTable(w io.Writer, labelA, labelB string, onlyA, onlyB []string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Identifier", "Present In"})
	for _, id := range onlyA {
		table.Append([]string{id, labelA})
	}
	for _, id := range onlyB {
		table.Append([]string{id, labelB})
	}
	table.Render()
}

// CountTable renders name/count pairs sorted by name.
func CountTable(w io.Writer, header string, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{header, "Count"})
	for _, name := range names {
		table.Append([]string{name, strconv.Itoa(counts[name])})
	}
	table.Render()
}

// CandidateRow is one machine considered for one requirement.
type CandidateRow struct {
	Requirement string
	Identifier  string
	Name        string
	Weight      float64
}

// CandidateTable renders filter results. Weight is the fit score; lower
// means a tighter fit.
func CandidateTable(w io.Writer, rows []CandidateRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Requirement", "Identifier", "Name", "Weight"})
	for _, r := range rows {
		table.Append([]string{
			r.Requirement,
			r.Identifier,
			r.Name,
			strconv.FormatFloat(r.Weight, 'f', 2, 64),
		})
	}
	table.Render()
}

// PairTable renders two-column data with the given headers.
func PairTable(w io.Writer, headerA, headerB string, pairs [][2]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{headerA, headerB})
	for _, p := range pairs {
		table.Append([]string{p[0], p[1]})
	}
	table.Render()
}

// DiffText renders the reconciliation result as plain text for the email
// body.
func DiffText(labelA, labelB string, onlyA, onlyB []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Only in %s (%d):\n", labelA, len(onlyA))
	for _, id := range onlyA {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	fmt.Fprintf(&b, "Only in %s (%d):\n", labelB, len(onlyB))
	for _, id := range onlyB {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	return b.String()
}
