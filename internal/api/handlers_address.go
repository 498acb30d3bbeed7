package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/bemcuidar/internal/clients/viacep"
)

func (handler *Handler) LookupAddress(c *fiber.Ctx) error {
	if handler.addresses == nil {
		return apiError(c, fiber.StatusServiceUnavailable, "address lookup unavailable")
	}

	address, err := handler.addresses.Lookup(c.UserContext(), c.Params("cep"))
	handler.observeAddressLookup(err)
	switch {
	case err == nil:
		return c.JSON(address)
	case errors.Is(err, viacep.ErrInvalidPostalCode):
		return apiError(c, fiber.StatusBadRequest, "invalid postal code")
	case errors.Is(err, viacep.ErrAddressNotFound):
		return apiError(c, fiber.StatusNotFound, "address not found")
	default:
		handler.logger.WithError(err).Warn("address lookup failed")
		return apiError(c, fiber.StatusBadGateway, "address lookup failed")
	}
}

func (handler *Handler) observeAddressLookup(err error) {
	if handler.metrics == nil {
		return
	}
	switch {
	case err == nil:
		handler.metrics.ObserveAddressLookup("found")
	case errors.Is(err, viacep.ErrInvalidPostalCode):
		handler.metrics.ObserveAddressLookup("invalid")
	case errors.Is(err, viacep.ErrAddressNotFound):
		handler.metrics.ObserveAddressLookup("not_found")
	default:
		handler.metrics.ObserveAddressLookup("error")
	}
}
