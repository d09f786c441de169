package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gwhitt/roundbook/internal/http/middleware"
	"github.com/gwhitt/roundbook/internal/model"
	"github.com/gwhitt/roundbook/internal/schedule"
	"github.com/gwhitt/roundbook/internal/service/workload"
	"github.com/gwhitt/roundbook/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const monthLayout = "2006-01"

// dayCustomer is the wire form of one scheduled job.
type dayCustomer struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Phone       string `json:"phone,omitempty"`
	Price       string `json:"price"`
	Outstanding string `json:"outstanding"`
	Weeks       int    `json:"weeks"`
	RouteTag    string `json:"route_tag,omitempty"`
	NextService string `json:"next_service,omitempty"`
}

func toDayCustomer(c model.Customer) dayCustomer {
	return dayCustomer{
		ID:          c.ID,
		Name:        c.Name,
		Address:     c.Address,
		Phone:       c.Phone,
		Price:       util.Pounds(c.Price),
		Outstanding: util.Pounds(c.Outstanding),
		Weeks:       c.Weeks,
		RouteTag:    c.RouteTag,
		NextService: c.NextService,
	}
}

func calendarHandler(svc *workload.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		acctID, ok := middleware.AccountIDFromCtx(c)
		if !ok || acctID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		raw := strings.TrimSpace(c.QueryParam("month"))
		if raw == "" {
			raw = time.Now().Format(monthLayout)
		}
		t, err := time.Parse(monthLayout, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid month"})
		}

		days, err := svc.MonthView(c.Request().Context(), acctID, t.Year(), t.Month())
		if err != nil {
			log.Errorf("month view failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"month": raw,
			"days":  days,
		})
	}
}

func dayViewHandler(svc *workload.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		acctID, ok := middleware.AccountIDFromCtx(c)
		if !ok || acctID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		date, err := schedule.ParseDate(c.Param("date"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date"})
		}

		view, err := svc.DayView(c.Request().Context(), acctID, date)
		if err != nil {
			log.Errorf("day view failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		out := make([]dayCustomer, 0, len(view.Customers))
		for _, cu := range view.Customers {
			out = append(out, toDayCustomer(cu))
		}

		return c.JSON(http.StatusOK, map[string]any{
			"date":      date.String(),
			"customers": out,
			"income":    util.Pounds(view.Income),
		})
	}
}

type reorderReq struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func reorderHandler(svc *workload.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		acctID, ok := middleware.AccountIDFromCtx(c)
		if !ok || acctID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		date, err := schedule.ParseDate(c.Param("date"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date"})
		}

		var req reorderReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		if err := svc.Reorder(c.Request().Context(), acctID, date, req.From, req.To); err != nil {
			if errors.Is(err, schedule.ErrBadIndex) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "index out of range"})
			}

			log.Errorf("reorder failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{"reordered": true, "date": date.String()})
	}
}

type completeReq struct {
	CustomerID int64 `json:"customer_id"`
	Paid       bool  `json:"paid"`
}

func completeHandler(svc *workload.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		acctID, ok := middleware.AccountIDFromCtx(c)
		if !ok || acctID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		date, err := schedule.ParseDate(c.Param("date"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date"})
		}

		var req completeReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.CustomerID <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "customer_id required"})
		}

		res, err := svc.Complete(c.Request().Context(), acctID, req.CustomerID, date, req.Paid)
		if err != nil {
			switch {
			case errors.Is(err, workload.ErrCustomerNotFound):
				return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
			case errors.Is(err, workload.ErrEmptyDate):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date"})
			}

			log.Errorf("complete failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"completed":        true,
			"customer_id":      strconv.FormatInt(req.CustomerID, 10),
			"next_due":         res.NextDue.String(),
			"outstanding":      util.Pounds(res.Outstanding),
			"notice_available": res.NoticeAvailable,
		})
	}
}

type bulkMoveReq struct {
	CustomerIDs []int64 `json:"customer_ids"`
	NewDate     string  `json:"new_date"`
}

func bulkMoveHandler(svc *workload.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		acctID, ok := middleware.AccountIDFromCtx(c)
		if !ok || acctID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		date, err := schedule.ParseDate(c.Param("date"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date"})
		}

		var req bulkMoveReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		var newDate schedule.Date
		if raw := strings.TrimSpace(req.NewDate); raw != "" {
			newDate, err = schedule.ParseDate(raw)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid new_date"})
			}
		}

		res, err := svc.BulkMove(c.Request().Context(), acctID, date, req.CustomerIDs, newDate)
		if err != nil {
			if errors.Is(err, workload.ErrEmptyDate) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "new_date required"})
			}

			log.Errorf("bulk move failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		failed := make([]map[string]any, 0, len(res.Failed))
		for _, f := range res.Failed {
			failed = append(failed, map[string]any{
				"customer_id": f.CustomerID,
				"error":       f.Err.Error(),
			})
		}

		status := http.StatusOK
		if !res.OK() {
			status = http.StatusMultiStatus
		}

		return c.JSON(status, map[string]any{
			"new_date": newDate.String(),
			"moved":    res.Moved,
			"skipped":  res.Skipped,
			"failed":   failed,
		})
	}
}
