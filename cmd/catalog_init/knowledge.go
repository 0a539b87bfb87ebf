package main

import (
	"context"

	"cleaning-duty/internal/logger"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

var knowledges = []sdk.NL2SQLKnowledgeCreateRequest{
	{Type: "glossary", Key: "当番", Value: []string{"schedulesテーブルの1行。あるメンバーがある日に担当する掃除タスク"}},
	{Type: "glossary", Key: "完了", Value: []string{"completionsテーブルの1行。当番の掃除が実施された記録"}},
	{Type: "glossary", Key: "ローテーション月", Value: []string{"schedules.rotation_month、YYYY-MM形式の月キー"}},

	{Type: "synonyms", Key: "担当者/誰/メンバー", Value: []string{"メンバーの氏名"}, AssociateTables: []string{"members,name"}},
	{Type: "synonyms", Key: "日付/いつ/当番日", Value: []string{"当番の日付"}, AssociateTables: []string{"schedules,scheduled_date"}},
	{Type: "synonyms", Key: "終わった/済み/完了日時", Value: []string{"完了日時"}, AssociateTables: []string{"completions,completed_at"}},

	{Type: "logic", Key: "担当者名はschedules.member_idとmembers.idを結合して取得する", Value: []string{"JOIN members ON schedules.member_id = members.id"}},
	{Type: "logic", Key: "未完了の当番はschedules LEFT JOIN completionsでcompletions.idがNULLのもの", Value: []string{"未完了判定"}},

	{Type: "case_library", Key: "今日の当番は誰", Value: []string{"SELECT m.name FROM schedules s JOIN members m ON s.member_id = m.id WHERE s.scheduled_date = CURDATE()"}},
	{Type: "case_library", Key: "今月まだ終わっていない当番", Value: []string{"SELECT s.scheduled_date, m.name FROM schedules s JOIN members m ON s.member_id = m.id LEFT JOIN completions c ON c.schedule_id = s.id WHERE s.rotation_month = DATE_FORMAT(CURDATE(), '%Y-%m') AND s.scheduled_date < CURDATE() AND c.id IS NULL"}},
	{Type: "case_library", Key: "今月の完了率", Value: []string{"SELECT COUNT(DISTINCT c.schedule_id) / COUNT(DISTINCT s.id) * 100 FROM schedules s LEFT JOIN completions c ON c.schedule_id = s.id WHERE s.rotation_month = DATE_FORMAT(CURDATE(), '%Y-%m')"}},
}

func initKnowledge(ctx context.Context, client *sdk.RawClient) error {
	for _, k := range knowledges {
		resp, err := client.CreateKnowledge(ctx, &k)
		if err != nil {
			if isDuplicate(err) {
				logger.Info("knowledge: already exists, skipping", "type", k.Type, "key", k.Key)
				continue
			}
			return err
		}
		logger.Info("knowledge: created", "type", k.Type, "key", k.Key, "id", resp.ID)
	}
	return nil
}
