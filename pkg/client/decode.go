package client

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/proxyintel/client-go/pkg/query"
)

// wireResult mirrors the per-address JSON object of the detection
// service. Numeric fields arrive as either strings or numbers depending
// on the answering node version, hence json.Number.
type wireResult struct {
	ASN           string      `json:"asn"`
	Provider      string      `json:"provider"`
	Country       string      `json:"country"`
	ISOCode       string      `json:"isocode"`
	Latitude      float64     `json:"latitude"`
	Longitude     float64     `json:"longitude"`
	City          string      `json:"city"`
	Proxy         string      `json:"proxy"`
	Type          string      `json:"type"`
	Risk          int         `json:"risk"`
	Port          json.Number `json:"port"`
	LastSeenHuman string      `json:"last seen human"`
	LastSeenUnix  json.Number `json:"last seen unix"`
	Error         string      `json:"error"`
}

func (w wireResult) toIPResult() query.IPResult {
	r := query.IPResult{
		ASN:           w.ASN,
		Provider:      w.Provider,
		Country:       w.Country,
		ISOCode:       w.ISOCode,
		Latitude:      w.Latitude,
		Longitude:     w.Longitude,
		City:          w.City,
		IsProxy:       strings.EqualFold(w.Proxy, "yes"),
		ProxyType:     w.Type,
		RiskScore:     w.Risk,
		LastSeenHuman: w.LastSeenHuman,
		ErrorMessage:  w.Error,
	}
	if port, err := w.Port.Int64(); err == nil {
		r.Port = int(port)
	}
	if unix, err := w.LastSeenUnix.Int64(); err == nil && unix > 0 {
		r.LastSeenUnix = unix
		r.LastSeen = time.Unix(unix, 0).UTC()
	}
	return r
}

// Decode parses a raw detection service response into a query.Result.
//
// The response is one JSON object with a few fixed keys (status, node,
// query time, message) plus one dynamic key per queried address. A
// per-address error string becomes that result's ErrorMessage, never a
// top-level failure, because a batch query can partially succeed.
func Decode(raw []byte) (*query.Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	res := &query.Result{
		Status:  query.StatusOK,
		Results: make(map[string]query.IPResult),
	}

	for key, value := range fields {
		switch key {
		case "status":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fmt.Errorf("%w: status field: %v", ErrBadResponse, err)
			}
			res.Status = query.ParseStatus(s)
		case "message":
			var s string
			if err := json.Unmarshal(value, &s); err == nil {
				res.Message = s
			}
		case "node":
			var s string
			if err := json.Unmarshal(value, &s); err == nil {
				res.Node = s
			}
		case "query time":
			var s string
			if err := json.Unmarshal(value, &s); err == nil {
				if d, err := time.ParseDuration(s); err == nil {
					res.QueryTime = d
				}
			}
		default:
			if net.ParseIP(key) == nil {
				// Tolerate unknown metadata keys the service may add.
				continue
			}
			var w wireResult
			if err := json.Unmarshal(value, &w); err != nil {
				return nil, fmt.Errorf("%w: entry %s: %v", ErrBadResponse, key, err)
			}
			res.Results[key] = w.toIPResult()
		}
	}

	return res, nil
}
