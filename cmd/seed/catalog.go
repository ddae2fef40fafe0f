package main

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// catalogo archivo XML con el inventario inicial de un laboratorio.
//
//	<catalogo>
//	  <ubicacion nombre="Cuarto de fructificación" costo_fijo="120"/>
//	  <item nombre="Guantes" tipo="consumable" unidad="par">
//	    <lote cantidad="100" costo="25"/>
//	  </item>
//	</catalogo>
type catalogo struct {
	Ubicaciones []ubicacion `xml:"ubicacion"`
	Items       []item      `xml:"item"`
}

type ubicacion struct {
	Nombre    string `xml:"nombre,attr"`
	CostoFijo string `xml:"costo_fijo,attr"`
}

type item struct {
	Nombre      string `xml:"nombre,attr"`
	Tipo        string `xml:"tipo,attr"`
	Unidad      string `xml:"unidad,attr"`
	Imputar     string `xml:"imputar,attr"` // "false" excluye el ítem del costo de los Grow
	ValorActual string `xml:"valor_actual,attr"`
	Lotes       []lote `xml:"lote"`
}

type lote struct {
	Cantidad string `xml:"cantidad,attr"`
	Costo    string `xml:"costo,attr"`
}

// seedSummary registros creados por loadCatalog.
type seedSummary struct {
	Locations int
	Items     int
	Lots      int
}

// parseCatalog decodifica el catálogo; acepta archivos ISO-8859-1 además de UTF-8.
func parseCatalog(r io.Reader) (*catalogo, error) {
	var c catalogo
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decodificar catálogo: %w", err)
	}
	return &c, nil
}

// loadCatalog da de alta ubicaciones, ítems y lotes a nombre del actor de ctx.
// Se detiene en el primer error; lo ya creado queda persistido.
func loadCatalog(ctx context.Context, engine *cultivation.Engine, c *catalogo) (seedSummary, error) {
	var sum seedSummary
	for _, u := range c.Ubicaciones {
		cost, err := parseDecimal(u.CostoFijo)
		if err != nil {
			return sum, fmt.Errorf("ubicación %q: %w", u.Nombre, err)
		}
		if _, err := engine.CreateLocation(ctx, cultivation.LocationInput{Name: strings.TrimSpace(u.Nombre), FixedCost: cost}); err != nil {
			return sum, fmt.Errorf("ubicación %q: %w", u.Nombre, err)
		}
		sum.Locations++
	}

	for _, it := range c.Items {
		in := cultivation.ItemInput{
			Name:      strings.TrimSpace(it.Nombre),
			AssetType: strings.TrimSpace(it.Tipo),
			Unit:      strings.TrimSpace(it.Unidad),
		}
		if it.Imputar != "" {
			include := !strings.EqualFold(strings.TrimSpace(it.Imputar), "false")
			in.IncludeInGrowCost = &include
		}
		if it.ValorActual != "" {
			v, err := parseDecimal(it.ValorActual)
			if err != nil {
				return sum, fmt.Errorf("ítem %q: %w", it.Nombre, err)
			}
			in.CurrentValue = &v
		}
		created, err := engine.CreateInventoryItem(ctx, in)
		if err != nil {
			return sum, fmt.Errorf("ítem %q: %w", it.Nombre, err)
		}
		sum.Items++

		for i, l := range it.Lotes {
			qty, err := parseDecimal(l.Cantidad)
			if err != nil {
				return sum, fmt.Errorf("ítem %q lote %d: %w", it.Nombre, i+1, err)
			}
			cost, err := parseDecimal(l.Costo)
			if err != nil {
				return sum, fmt.Errorf("ítem %q lote %d: %w", it.Nombre, i+1, err)
			}
			if _, err := engine.AddLot(ctx, cultivation.LotInput{ItemID: created.ID, Quantity: qty, PurchaseCost: cost}); err != nil {
				return sum, fmt.Errorf("ítem %q lote %d: %w", it.Nombre, i+1, err)
			}
			sum.Lots++
		}
	}
	return sum, nil
}

// parseDecimal vacío = 0.
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("número inválido %q", s)
	}
	return d, nil
}
