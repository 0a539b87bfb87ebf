package main

import (
	"context"
	"fmt"
	"strings"

	"cleaning-duty/internal/logger"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

// catalogTables mirror the CSV layouts written by service.CatalogSync.
var catalogTables = []struct {
	name    string
	columns []sdk.Column
}{
	{"members", []sdk.Column{
		{Name: "id", Type: "VARCHAR(36)", IsPk: true, Comment: "メンバーID"},
		{Name: "department_id", Type: "VARCHAR(36)", Comment: "所属部署ID"},
		{Name: "name", Type: "VARCHAR(100)", Comment: "氏名"},
		{Name: "is_active", Type: "BOOLEAN", Comment: "在籍中かどうか"},
	}},
	{"schedules", []sdk.Column{
		{Name: "id", Type: "VARCHAR(36)", IsPk: true, Comment: "当番ID"},
		{Name: "task_id", Type: "VARCHAR(36)", Comment: "掃除タスクID"},
		{Name: "member_id", Type: "VARCHAR(36)", Comment: "担当メンバーID、members.idに対応"},
		{Name: "scheduled_date", Type: "DATE", Comment: "当番日"},
		{Name: "rotation_month", Type: "VARCHAR(7)", Comment: "ローテーション月 YYYY-MM"},
	}},
	{"completions", []sdk.Column{
		{Name: "id", Type: "VARCHAR(36)", IsPk: true, Comment: "完了記録ID"},
		{Name: "schedule_id", Type: "VARCHAR(36)", Comment: "schedules.idに対応"},
		{Name: "completed_by", Type: "VARCHAR(36)", Comment: "完了したメンバーID"},
		{Name: "completed_at", Type: "DATETIME", Comment: "完了日時"},
		{Name: "notes", Type: "TEXT", Comment: "メモ"},
	}},
}

func initCatalog(ctx context.Context, client *sdk.RawClient, catalogID sdk.CatalogID, dbName string) (sdk.DatabaseID, map[string]sdk.TableID, error) {
	dbID, err := ensureDatabase(ctx, client, catalogID, dbName)
	if err != nil {
		return 0, nil, err
	}

	ids := make(map[string]sdk.TableID, len(catalogTables))
	for _, t := range catalogTables {
		resp, err := client.CreateTable(ctx, &sdk.TableCreateRequest{
			DatabaseID: dbID,
			Name:       t.name,
			Columns:    t.columns,
			Comment:    t.name,
		})
		if err != nil {
			if isDuplicate(err) {
				logger.Info("catalog: table already exists, skipping", "name", t.name)
				continue
			}
			return 0, nil, fmt.Errorf("create table %s: %w", t.name, err)
		}
		ids[t.name] = resp.TableID
		logger.Info("catalog: table created", "name", t.name, "id", resp.TableID)
	}
	return dbID, ids, nil
}

func ensureDatabase(ctx context.Context, client *sdk.RawClient, catalogID sdk.CatalogID, dbName string) (sdk.DatabaseID, error) {
	resp, err := client.CreateDatabase(ctx, &sdk.DatabaseCreateRequest{
		CatalogID:    catalogID,
		DatabaseName: dbName,
		Comment:      "掃除当番",
	})
	if err == nil {
		logger.Info("catalog: database created", "id", resp.DatabaseID)
		return resp.DatabaseID, nil
	}
	if !isDuplicate(err) {
		return 0, fmt.Errorf("create database: %w", err)
	}

	logger.Info("catalog: database already exists, discovering ID", "name", dbName)
	list, err := client.ListDatabases(ctx, &sdk.DatabaseListRequest{CatalogID: catalogID})
	if err != nil {
		return 0, fmt.Errorf("list databases: %w", err)
	}
	for _, db := range list.List {
		if db.DatabaseName == dbName {
			logger.Info("catalog: database discovered", "id", db.DatabaseID)
			return db.DatabaseID, nil
		}
	}
	return 0, fmt.Errorf("database %s not found in catalog %d", dbName, catalogID)
}

func isDuplicate(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate") || strings.Contains(s, "already exist") || strings.Contains(s, "exists") || strings.Contains(s, "conflict")
}
