package viacep

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidPostalCode = errors.New("invalid postal code")
	ErrAddressNotFound   = errors.New("address not found")
	ErrUpstream          = errors.New("address lookup unavailable")
)

// Address is the subset of a ViaCEP answer the registration form fills in.
type Address struct {
	ZipCode      string `json:"zip_code"`
	Street       string `json:"street"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

type lookupResponse struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Erro        any    `json:"erro"`
}

type Client struct {
	httpClient *resty.Client
	limiter    *rate.Limiter
	logger     logrus.FieldLogger
}

// NewClient builds a throttled client. rps caps outgoing lookups; bursts of up
// to twice that are allowed.
func NewClient(baseURL string, rps float64, logger logrus.FieldLogger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger.WithField("component", "viacep"),
	}
}

// Lookup resolves an 8-digit CEP. Punctuation in the input is ignored.
func (c *Client) Lookup(ctx context.Context, rawCEP string) (Address, error) {
	cep := NormalizeCEP(rawCEP)
	if cep == "" {
		return Address{}, ErrInvalidPostalCode
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var response lookupResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&response).
		Get("/" + cep + "/json/")
	if err != nil {
		c.logger.WithError(err).WithField("cep", cep).Warn("viacep request failed")
		return Address{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	switch {
	case resp.StatusCode() == http.StatusBadRequest:
		return Address{}, ErrInvalidPostalCode
	case resp.StatusCode() == http.StatusNotFound:
		return Address{}, ErrAddressNotFound
	case resp.IsError():
		c.logger.WithField("status", resp.StatusCode()).WithField("cep", cep).Warn("viacep returned an error status")
		return Address{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}

	if isErroFlag(response.Erro) || response.CEP == "" {
		return Address{}, ErrAddressNotFound
	}

	return Address{
		ZipCode:      cep,
		Street:       response.Logradouro,
		Complement:   response.Complemento,
		Neighborhood: response.Bairro,
		City:         response.Localidade,
		State:        response.UF,
	}, nil
}

// NormalizeCEP keeps the digits of raw and returns "" unless exactly eight remain.
func NormalizeCEP(raw string) string {
	digits := make([]byte, 0, 8)
	for i := 0; i < len(raw); i++ {
		switch {
		case raw[i] >= '0' && raw[i] <= '9':
			digits = append(digits, raw[i])
		case raw[i] == '-' || raw[i] == '.' || raw[i] == ' ':
		default:
			return ""
		}
	}
	if len(digits) != 8 {
		return ""
	}
	return string(digits)
}

// ViaCEP has answered both {"erro": true} and {"erro": "true"}.
func isErroFlag(value any) bool {
	switch flag := value.(type) {
	case bool:
		return flag
	case string:
		return flag == "true"
	default:
		return false
	}
}
