package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cleaning-duty/internal/config"
	"cleaning-duty/internal/model"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

// CatalogSync appends duty rows to MatrixOne catalog tables so they can be
// queried from the catalog side. Every call is best effort.
type CatalogSync struct {
	raw         *sdk.RawClient
	sdk         *sdk.SDKClient
	databaseID  sdk.DatabaseID
	schedules   sdk.TableID
	completions sdk.TableID
	members     sdk.TableID
	log         *slog.Logger
}

func NewCatalogSync(raw *sdk.RawClient, cfg config.MOIConfig, log *slog.Logger) *CatalogSync {
	return &CatalogSync{
		raw:         raw,
		sdk:         sdk.NewSDKClient(raw),
		databaseID:  sdk.DatabaseID(cfg.DatabaseID),
		schedules:   sdk.TableID(cfg.SchedulesTableID),
		completions: sdk.TableID(cfg.CompletionsTableID),
		members:     sdk.TableID(cfg.MembersTableID),
		log:         log,
	}
}

// completions: id, schedule_id, completed_by, completed_at, notes
func (s *CatalogSync) SyncCompletion(ctx context.Context, c model.Completion) {
	if s.completions == 0 {
		return
	}
	notes := ""
	if c.Notes != nil {
		notes = *c.Notes
	}
	rows := [][]string{{c.ID, c.ScheduleID, c.CompletedBy, c.CompletedAt.Format(time.DateTime), notes}}
	s.importCSV(ctx, s.completions, rows, "completion_"+c.ID+".csv",
		[]sdk.FileAndTableColumnMapping{
			{TableColumn: "id", Column: "id", ColNumInFile: 1},
			{TableColumn: "schedule_id", Column: "schedule_id", ColNumInFile: 2},
			{TableColumn: "completed_by", Column: "completed_by", ColNumInFile: 3},
			{TableColumn: "completed_at", Column: "completed_at", ColNumInFile: 4},
			{TableColumn: "notes", Column: "notes", ColNumInFile: 5},
		})
}

// schedules: id, task_id, member_id, scheduled_date, rotation_month
func (s *CatalogSync) SyncSchedules(ctx context.Context, entries []model.Schedule) {
	if s.schedules == 0 || len(entries) == 0 {
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.ID, e.TaskID, e.MemberID, e.ScheduledDate, e.RotationMonth})
	}
	name := fmt.Sprintf("schedules_%s.csv", entries[0].RotationMonth)
	s.importCSV(ctx, s.schedules, rows, name,
		[]sdk.FileAndTableColumnMapping{
			{TableColumn: "id", Column: "id", ColNumInFile: 1},
			{TableColumn: "task_id", Column: "task_id", ColNumInFile: 2},
			{TableColumn: "member_id", Column: "member_id", ColNumInFile: 3},
			{TableColumn: "scheduled_date", Column: "scheduled_date", ColNumInFile: 4},
			{TableColumn: "rotation_month", Column: "rotation_month", ColNumInFile: 5},
		})
}

// members: id, department_id, name, is_active
func (s *CatalogSync) SyncMembers(ctx context.Context, members []model.Member) {
	if s.members == 0 || len(members) == 0 {
		return
	}
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		rows = append(rows, []string{m.ID, m.DepartmentID, m.Name, strconv.FormatBool(m.IsActive)})
	}
	s.importCSV(ctx, s.members, rows, "members.csv",
		[]sdk.FileAndTableColumnMapping{
			{TableColumn: "id", Column: "id", ColNumInFile: 1},
			{TableColumn: "department_id", Column: "department_id", ColNumInFile: 2},
			{TableColumn: "name", Column: "name", ColNumInFile: 3},
			{TableColumn: "is_active", Column: "is_active", ColNumInFile: 4},
		})
}

func (s *CatalogSync) importCSV(ctx context.Context, tableID sdk.TableID, rows [][]string, fileName string, cols []sdk.FileAndTableColumnMapping) {
	data, err := encodeCSV(rows)
	if err != nil {
		s.log.Warn("catalog.encode.failed", "table", tableID, "err", err)
		return
	}
	resp, err := s.raw.UploadLocalFile(ctx, bytes.NewReader(data), fileName, []sdk.FileMeta{{Filename: fileName, Path: "/"}})
	if err != nil {
		s.log.Warn("catalog.upload.failed", "table", tableID, "err", err)
		return
	}
	if len(resp.ConnFileIds) == 0 {
		s.log.Warn("catalog.upload.empty", "table", tableID)
		return
	}

	_, err = s.sdk.ImportLocalFileToTable(ctx, &sdk.TableConfig{
		ConnFileIDs:      resp.ConnFileIds,
		NewTable:         false,
		DatabaseID:       s.databaseID,
		TableID:          tableID,
		IsColumnName:     false,
		RowStart:         1,
		Conflict:         1,
		ExistedTable:     cols,
		ExistedTableOpts: sdk.ExistedTableOptions{Method: sdk.ExistedTableOptionAppend},
	})
	if err != nil {
		s.log.Warn("catalog.import.failed", "table", tableID, "file", fileName, "err", err)
		return
	}
	s.log.Info("catalog.sync.ok", "table", tableID, "file", fileName)
}

func encodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
