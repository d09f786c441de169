package http

import (
	"net/http"
	"strconv"

	"github.com/gwhitt/roundbook/internal/http/middleware"
	"github.com/gwhitt/roundbook/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func customerHistoryHandler(customers repository.CustomersRepository, history repository.HistoryRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		acctID, ok := middleware.AccountIDFromCtx(c)
		if !ok || acctID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		custID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || custID <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
		}

		// The history table is account-agnostic; ownership is checked here.
		cust, err := customers.GetByID(c.Request().Context(), acctID, custID)
		if err != nil {
			c.Logger().Errorf("customer lookup failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		if cust == nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
		}

		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		entries, err := history.ListByCustomer(c.Request().Context(), custID, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(entries),
			"results": entries,
		})
	}
}
