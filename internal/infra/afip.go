package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AFIPPayload is sent to the AFIP sidecar, which handles WSAA + WSFEV1 and
// returns the CAE.
type AFIPPayload struct {
	TipoCBTE   int     `json:"tipo_cbte"` // 1=Factura A, 6=Factura B, 11=Factura C
	PuntoVenta int     `json:"punto_vta"`
	CUIT       string  `json:"cuit"`
	MontoNeto  float64 `json:"monto_neto"`
	MontoIVA   float64 `json:"monto_iva"`
	MontoTotal float64 `json:"monto_total"`
	VentaID    string  `json:"venta_id"`
}

// AFIPObservacion is one remark attached by WSFEV1 to a result.
type AFIPObservacion struct {
	Codigo  int    `json:"codigo"`
	Mensaje string `json:"mensaje"`
}

// AFIPResponse is returned by the sidecar after querying WSFEV1.
type AFIPResponse struct {
	CAE            string            `json:"cae"`
	CAEVencimiento string            `json:"cae_vencimiento"` // YYYYMMDD
	Resultado      string            `json:"resultado"`       // "A" (aprobado) | "R" (rechazado)
	Observaciones  []AFIPObservacion `json:"observaciones"`
}

func (r *AFIPResponse) Aprobado() bool { return r.Resultado == "A" }

// Motivo joins the observations into a single line for storage.
func (r *AFIPResponse) Motivo() string {
	if len(r.Observaciones) == 0 {
		return "resultado=" + r.Resultado
	}
	partes := make([]string, 0, len(r.Observaciones))
	for _, o := range r.Observaciones {
		partes = append(partes, fmt.Sprintf("%d: %s", o.Codigo, o.Mensaje))
	}
	return strings.Join(partes, "; ")
}

// VencimientoCAE parses the expiry date format returned by AFIP.
func (r *AFIPResponse) VencimientoCAE() (*time.Time, error) {
	t, err := time.Parse("20060102", r.CAEVencimiento)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// AFIPClient delegates AFIP communication to the sidecar so its failures
// stay outside the ledger process.
type AFIPClient struct {
	sidecarURL string
	httpClient *http.Client
}

func NewAFIPClient(sidecarURL string) *AFIPClient {
	return &AFIPClient{
		sidecarURL: strings.TrimRight(sidecarURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Facturar sends a POST to the sidecar and returns the CAE response.
func (c *AFIPClient) Facturar(ctx context.Context, payload AFIPPayload) (*AFIPResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("afip: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sidecarURL+"/facturar", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("afip: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("afip: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("afip: sidecar returned %d", resp.StatusCode)
	}

	var result AFIPResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("afip: decode response: %w", err)
	}
	return &result, nil
}

// Ping checks that the sidecar answers its health endpoint.
func (c *AFIPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sidecarURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("afip: sidecar health returned %d", resp.StatusCode)
	}
	return nil
}
