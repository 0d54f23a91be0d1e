// Package export renders admin reports as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

const OrdersSheet = "Orders"

// ContentType of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var orderHeader = []interface{}{
	"Order ID", "Username", "Email", "Course", "Course Price", "Amount",
	"Payment Method", "Payment Proof", "Status", "Note", "Note From Admin",
	"Created At", "Approved At",
}

// WriteOrders writes one row per order under a styled header
func WriteOrders(w io.Writer, orders []*models.OrderWithDetails) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", OrdersSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#305496"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(OrdersSheet, "A1", &orderHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(orderHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(OrdersSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, o := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			o.ID, o.Username, o.Email, o.CourseName, o.CoursePrice, o.Amount,
			string(o.PaymentMethod), deref(o.PaymentProof), string(o.Status),
			deref(o.Note), deref(o.NoteFromAdmin),
			o.CreatedAt.UTC().Format(time.RFC3339), formatTime(o.ApproveAt),
		}
		if err := f.SetSheetRow(OrdersSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write order %d: %w", o.ID, err)
		}
	}

	if err := f.SetColWidth(OrdersSheet, "A", lastCol, 18); err != nil {
		return err
	}
	if err := f.SetPanes(OrdersSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
