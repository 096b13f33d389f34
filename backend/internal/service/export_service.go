package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wedly/backend/internal/model"
	"wedly/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 工作簿包含两张表：「宾客」每个邀请一行（含回复状态），「问卷」每条回答一行。
type ExportService interface {
	ExportRSVPs(ctx context.Context, weddingID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportRSVPs 导出宾客回复为 Excel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportRSVPs(ctx context.Context, weddingID string) (*bytes.Buffer, string, error) {
	w, err := s.repo.Wedding.GetByID(ctx, weddingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrWeddingNotFound
		}
		s.logger.Error("查询婚礼失败", zap.Error(err))
		return nil, "", err
	}

	invitations, err := s.repo.Invitation.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询邀请失败", zap.Error(err))
		return nil, "", err
	}
	rsvps, err := s.repo.RSVP.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询 RSVP 失败", zap.Error(err))
		return nil, "", err
	}
	events, err := s.repo.Event.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询活动失败", zap.Error(err))
		return nil, "", err
	}
	questions, err := s.repo.Question.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询问题失败", zap.Error(err))
		return nil, "", err
	}

	byInvitation := make(map[string]*model.RSVP, len(rsvps))
	for i := range rsvps {
		byInvitation[rsvps[i].InvitationID] = &rsvps[i]
	}
	questionText := make(map[string]string, len(questions))
	for _, q := range questions {
		questionText[q.QuestionID] = q.Text
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// ── 宾客 ──
	guestSheet := "宾客"
	idx, _ := f.NewSheet(guestSheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"姓名", "邮箱", "邀请码", "状态", "人数上限", "回复人数", "携伴"}
	for _, e := range events {
		headers = append(headers, e.Name)
	}
	headers = append(headers, "饮食备注", "留言", "回复时间")

	for i, h := range headers {
		f.SetCellValue(guestSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(guestSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(guestSheet, "A", colName(len(headers)-1), 14)

	row := 2
	for _, inv := range invitations {
		values := []interface{}{inv.GuestName, inv.GuestEmail, inv.Code, statusLabel(inv.Status), inv.MaxGuests}
		r, ok := byInvitation[inv.InvitationID]
		if ok {
			values = append(values, r.NumberOfGuests, r.PlusOneName)
			attending := r.AttendingEventIDs.Set()
			for _, e := range events {
				if _, yes := attending[e.EventID]; yes {
					values = append(values, "出席")
				} else {
					values = append(values, "不出席")
				}
			}
			values = append(values, r.DietaryNotes, r.Message, r.SubmittedAt.Format("2006-01-02 15:04"))
		} else {
			values = append(values, "", "")
			for range events {
				values = append(values, "-")
			}
			values = append(values, "", "", "")
		}
		for i, v := range values {
			f.SetCellValue(guestSheet, cell(colName(i), row), v)
		}
		row++
	}

	// ── 问卷 ──
	answerSheet := "问卷"
	f.NewSheet(answerSheet)
	answerHeaders := []string{"姓名", "问题", "回答", "是否计入"}
	for i, h := range answerHeaders {
		f.SetCellValue(answerSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(answerSheet, "A1", "D1", headerStyle)
	f.SetColWidth(answerSheet, "A", "A", 14)
	f.SetColWidth(answerSheet, "B", "C", 36)

	row = 2
	for i := range rsvps {
		for _, res := range rsvps[i].Responses {
			v := res.Value.Data()
			answer := v.Text
			if len(v.Choices) > 0 {
				answer = strings.Join(v.Choices, "、")
			}
			binding := "是"
			if res.NonBinding {
				binding = "否"
			}
			text, ok := questionText[res.QuestionID]
			if !ok {
				text = "（已删除的问题）"
			}
			f.SetCellValue(answerSheet, cell("A", row), rsvps[i].GuestName)
			f.SetCellValue(answerSheet, cell("B", row), text)
			f.SetCellValue(answerSheet, cell("C", row), answer)
			f.SetCellValue(answerSheet, cell("D", row), binding)
			row++
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("RSVP_%s.xlsx", w.Slug)
	return buf, filename, nil
}

// ── 辅助函数 ──

func statusLabel(status string) string {
	switch status {
	case model.InvitationStatusViewed:
		return "已查看"
	case model.InvitationStatusResponded:
		return "已回复"
	default:
		return "已发送"
	}
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
