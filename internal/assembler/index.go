package assembler

import (
	"strings"

	"github.com/rezonia/mdfe-builder/internal/model"
)

// redeliveryDefault is the indReentrega value for invoices that carry none
const redeliveryDefault = "0"

type unloadingGroup struct {
	entry model.UnloadingMunicipality
}

func groupKey(state, municipality string) string {
	return strings.ToUpper(strings.TrimSpace(state)) + "|" + strings.ToUpper(strings.TrimSpace(municipality))
}

// buildIndex groups invoices by destination state and municipality, matching
// municipality names case-insensitively. Invoices without a destination join
// the route's unloading municipality, which is the only group when no
// invoice has one. Groups keep first-seen order.
func buildIndex(form *model.FormState, invoices []model.InvoiceRecord) model.DocumentIndex {
	route := form.Route
	var groups []*unloadingGroup
	byKey := make(map[string]*unloadingGroup)

	group := func(state, name, code string) *unloadingGroup {
		key := groupKey(state, name)
		if g, ok := byKey[key]; ok {
			if g.entry.Code == "" {
				g.entry.Code = strings.TrimSpace(code)
			}
			return g
		}
		g := &unloadingGroup{entry: model.UnloadingMunicipality{
			Code: strings.TrimSpace(code),
			Name: strings.TrimSpace(name),
		}}
		byKey[key] = g
		groups = append(groups, g)
		return g
	}
	routeGroup := func() *unloadingGroup {
		return group(route.UnloadingState, route.UnloadingMunicipality, route.UnloadingMunicipalityCode)
	}

	for _, inv := range invoices {
		var g *unloadingGroup
		if inv.HasDestination() {
			d := inv.Destination
			g = group(d.State, d.Municipality, d.MunicipalityCode)
		} else {
			g = routeGroup()
		}

		redelivery := strings.TrimSpace(inv.Redelivery)
		if redelivery == "" {
			redelivery = redeliveryDefault
		}
		g.entry.Invoices = append(g.entry.Invoices, model.InvoiceRef{
			AccessKey:  inv.AccessKey,
			Redelivery: redelivery,
		})
	}

	if len(groups) == 0 {
		routeGroup()
	}

	index := model.DocumentIndex{Unloading: make([]model.UnloadingMunicipality, 0, len(groups))}
	for _, g := range groups {
		index.Unloading = append(index.Unloading, g.entry)
	}
	return index
}
