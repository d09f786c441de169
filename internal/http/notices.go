package http

import (
	"errors"
	"net/http"

	"github.com/gwhitt/roundbook/internal/http/middleware"
	"github.com/gwhitt/roundbook/internal/service/notify"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type paymentNoticeReq struct {
	CustomerID int64 `json:"customer_id"`
}

func paymentNoticeHandler(svc *notify.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		acctID, ok := middleware.AccountIDFromCtx(c)
		if !ok || acctID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		var req paymentNoticeReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.CustomerID <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "customer_id required"})
		}

		id, err := svc.EnqueuePaymentNotice(c.Request().Context(), acctID, req.CustomerID)
		if err != nil {
			switch {
			case errors.Is(err, notify.ErrCustomerNotFound):
				return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
			case errors.Is(err, notify.ErrNoTemplate):
				return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "no payment template configured"})
			case errors.Is(err, notify.ErrNoPhone):
				return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "customer has no phone"})
			}

			log.Errorf("enqueue payment notice failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusAccepted, map[string]any{
			"enqueued": true,
			"id":       id,
		})
	}
}
