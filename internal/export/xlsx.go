package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// WriteXLSX writes one worksheet per server to w.
func WriteXLSX(w io.Writer, boards map[string][]contest.LeaderboardEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	servers := make([]string, 0, len(boards))
	for id := range boards {
		servers = append(servers, id)
	}
	sort.Strings(servers)
	if len(servers) == 0 {
		return fmt.Errorf("no standings to export")
	}

	for i, serverID := range servers {
		name := SheetName(serverID)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		for r, row := range Rows(boards[serverID]) {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", name, r+1, err)
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}
