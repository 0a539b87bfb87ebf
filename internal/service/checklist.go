package service

import "cleaning-duty/internal/model"

// checklists holds the steps for the standard task names. Tasks with any
// other name get an empty list.
var checklists = map[string][]model.ChecklistItem{
	"トイレ掃除": {
		{ID: "t1", Label: "便器を洗剤で磨く", Order: 1},
		{ID: "t2", Label: "便座を拭く", Order: 2},
		{ID: "t3", Label: "床を拭く", Order: 3},
		{ID: "t4", Label: "トイレットペーパーを補充する", Order: 4},
		{ID: "t5", Label: "ゴミ箱を空にする", Order: 5},
	},
	"キッチン掃除": {
		{ID: "k1", Label: "シンクを洗う", Order: 1},
		{ID: "k2", Label: "コンロ周りを拭く", Order: 2},
		{ID: "k3", Label: "調理台を拭く", Order: 3},
		{ID: "k4", Label: "食器を片付ける", Order: 4},
	},
	"ゴミ出し": {
		{ID: "g1", Label: "各フロアのゴミ箱を回収する", Order: 1},
		{ID: "g2", Label: "ゴミを分別する", Order: 2},
		{ID: "g3", Label: "指定場所にゴミを出す", Order: 3},
		{ID: "g4", Label: "新しいゴミ袋をセットする", Order: 4},
	},
	"床掃除": {
		{ID: "f1", Label: "掃除機をかける", Order: 1},
		{ID: "f2", Label: "モップで拭く", Order: 2},
		{ID: "f3", Label: "角や隅を確認する", Order: 3},
	},
	"窓拭き": {
		{ID: "w1", Label: "窓ガラスを拭く", Order: 1},
		{ID: "w2", Label: "窓枠を拭く", Order: 2},
		{ID: "w3", Label: "網戸をチェックする", Order: 3},
	},
}

// Checklist returns a copy of the steps for a task name.
func Checklist(taskName string) []model.ChecklistItem {
	return append([]model.ChecklistItem{}, checklists[taskName]...)
}
