package cultivation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/jhoicas/cultivo-lab/internal/domain/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// TransferSpec traspaso desde un cultivo. Si ToType es un tipo de cultivo se crea un cultivo hijo,
// salvo que ToID nombre un cultivo existente, que entonces recibe el volumen y el costo.
type TransferSpec struct {
	Quantity decimal.Decimal
	Unit     string
	ToType   string
	ToID     string
	Name     string // nombre del cultivo hijo; por defecto "<origen> G<generación>"
	Date     *time.Time
	Notes    string
}

// resolveCulture versión más reciente del grupo al que pertenece id. Debe llamarse con proj estable.
func (e *Engine) resolveCulture(id string) *entity.Culture {
	return headRow(e.proj, cultureKind(), id)
}

// Lineage ancestros (desde el padre hacia la raíz) y descendientes de un cultivo del actor.
func (e *Engine) Lineage(ctx context.Context, cultureID string) (cultivation.Lineage, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return cultivation.Lineage{}, err
	}
	e.view.RLock()
	defer e.view.RUnlock()

	start := e.resolveCulture(cultureID)
	if start == nil {
		return cultivation.Lineage{}, fmt.Errorf("%w: cultivo %s", domain.ErrNotFound, cultureID)
	}
	if err := authorize(actor, start.UserID); err != nil {
		return cultivation.Lineage{}, err
	}

	var latest []*entity.Culture
	for groupID, h := range e.proj.heads[entity.EntityCulture] {
		c := e.proj.cultures[h.id]
		if c == nil || c.UserID != actor || c.GroupID() != groupID {
			continue
		}
		latest = append(latest, c)
	}
	idx := cultivation.IndexChildren(latest, e.resolveCulture)
	out := cultivation.Lineage{
		Ancestors:   cloneCultures(cultivation.Ancestors(start, e.resolveCulture)),
		Descendants: cloneCultures(cultivation.Descendants(start, idx)),
	}
	return out, nil
}

func cloneCultures(in []*entity.Culture) []*entity.Culture {
	out := make([]*entity.Culture, 0, len(in))
	for _, c := range in {
		out = append(out, c.Clone())
	}
	return out
}

// prepareCultureVersion deriva generación y costo por ml y rechaza un padre que cierre un ciclo.
func (e *Engine) prepareCultureVersion(next, prev *entity.Culture) error {
	if !entity.IsCultureType(next.Type) {
		return fmt.Errorf("%w: tipo de cultivo %q", domain.ErrInvalidInput, next.Type)
	}
	if next.FillVolumeMl.IsNegative() {
		return fmt.Errorf("%w: el volumen no puede ser negativo", domain.ErrInvalidInput)
	}
	if prev == nil || next.ParentID != prev.ParentID {
		gen, err := e.generationFor(next.GroupID(), next.UserID, next.ParentID)
		if err != nil {
			return err
		}
		next.Generation = gen
	}
	if prev == nil || costInputsChanged(next, prev) {
		next.CostPerMl = cultivation.CostPerMl(next)
	}
	return nil
}

func costInputsChanged(a, b *entity.Culture) bool {
	return !a.FillVolumeMl.Equal(b.FillVolumeMl) ||
		!cultivation.CultureTotalCost(a).Equal(cultivation.CultureTotalCost(b))
}

// generationFor 0 sin padre; padre.Generation+1 si existe. El padre debe ser del mismo usuario
// y no puede ser el propio registro ni uno de sus descendientes.
func (e *Engine) generationFor(groupID, userID, parentID string) (int, error) {
	if parentID == "" {
		return 0, nil
	}
	parent := e.resolveCulture(parentID)
	if parent == nil {
		return 0, fmt.Errorf("%w: cultivo padre %s", domain.ErrNotFound, parentID)
	}
	if err := authorize(userID, parent.UserID); err != nil {
		return 0, err
	}
	if cultivation.WouldCreateCycle(groupID, parentID, e.resolveCulture) {
		return 0, fmt.Errorf("%w: %s no puede ser padre de %s (ciclo de linaje)", domain.ErrValidation, parentID, groupID)
	}
	return parent.Generation + 1, nil
}

// Transfer descuenta volumen del cultivo origen y, si el destino es un cultivo, crea el hijo
// (o alimenta el cultivo ToID) heredando costPerMl × volumen. Todo se escribe en una transacción.
// Devuelve nil si el destino no es un cultivo.
func (e *Engine) Transfer(ctx context.Context, cultureID string, spec TransferSpec) (*entity.Culture, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	spec.ToType = strings.TrimSpace(spec.ToType)
	if spec.ToType == "" {
		return nil, fmt.Errorf("%w: tipo de destino obligatorio", domain.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	src, err := liveRow(e, cultureKind(), actor, cultureID)
	if err != nil {
		return nil, err
	}
	volume, err := cultivation.TransferVolumeMl(spec.Quantity, spec.Unit, src.FillVolumeMl)
	if err != nil {
		return nil, err
	}

	now := e.now()
	date := now
	if spec.Date != nil {
		date = spec.Date.UTC()
	}
	costPerMl := cultivation.CostPerMl(src)
	transfer := entity.CultureTransfer{
		ID:                  e.newID(),
		UserID:              actor,
		FromCultureID:       src.ID,
		Quantity:            spec.Quantity,
		Unit:                spec.Unit,
		ToType:              spec.ToType,
		ToID:                spec.ToID,
		Date:                date,
		Notes:               spec.Notes,
		TransferredVolumeMl: volume,
		CostPerMl:           costPerMl,
		TransferredCost:     costPerMl.Mul(volume),
	}

	var dest *entity.Culture
	created := false
	if entity.IsCultureType(spec.ToType) {
		if spec.ToID != "" {
			target, err := liveRow(e, cultureKind(), actor, spec.ToID)
			if err != nil {
				return nil, err
			}
			if target.GroupID() == src.GroupID() {
				return nil, fmt.Errorf("%w: un cultivo no puede transferirse a sí mismo", domain.ErrValidation)
			}
			dest = target.Clone()
			dest.FillVolumeMl = dest.FillVolumeMl.Add(volume)
			dest.ParentCultureCost = dest.ParentCultureCost.Add(transfer.TransferredCost)
			dest.CostPerMl = cultivation.CostPerMl(dest)
			dest.UpdatedAt = now
			transfer.ToID = dest.ID
		} else {
			dest = e.childCulture(src, spec, volume, transfer.TransferredCost, now)
			created = true
			transfer.ToID = dest.ID
		}
	}

	updated := src.Clone()
	updated.FillVolumeMl = decimal.Max(decimal.Zero, src.FillVolumeMl.Sub(volume))
	updated.VolumeUsed = src.VolumeUsed.Add(volume)
	updated.CostPerMl = costPerMl
	updated.Transfers = append(updated.Transfers, transfer)
	updated.UpdatedAt = now

	kc := cultureKind()
	err = e.mutate(ctx, "transfer", func(tx repository.Tables, st *txState) error {
		if err := saveRow(ctx, tx.Cultures, updated.ID, updated); err != nil {
			return err
		}
		if dest != nil {
			if created {
				if err := tx.Cultures.Insert(ctx, dest.ID, dest); err != nil {
					return err
				}
			} else if err := saveRow(ctx, tx.Cultures, dest.ID, dest); err != nil {
				return err
			}
		}
		if err := tx.Transfers.Insert(ctx, transfer.ID, &transfer); err != nil {
			return err
		}
		st.stage(func(p *projection) {
			putRow(p, kc, updated)
			if dest != nil {
				putRow(p, kc, dest)
			}
		})
		st.emit(ChangeEvent{Op: OpUpdate, EntityType: entity.EntityCulture, ID: updated.ID, RecordGroupID: updated.GroupID(), ActorID: actor, At: now})
		if dest != nil {
			op := OpUpdate
			if created {
				op = OpCreate
			}
			st.emit(ChangeEvent{Op: op, EntityType: entity.EntityCulture, ID: dest.ID, RecordGroupID: dest.GroupID(), ActorID: actor, At: now})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("from_culture_id", src.ID).Str("to_type", spec.ToType).Str("to_id", transfer.ToID).
		Str("volume_ml", volume.String()).Str("cost", transfer.TransferredCost.String()).Msg("traspaso registrado")
	if dest == nil {
		return nil, nil
	}
	return dest.Clone(), nil
}

func (e *Engine) childCulture(src *entity.Culture, spec TransferSpec, volume, inherited decimal.Decimal, now time.Time) *entity.Culture {
	generation := src.Generation + 1
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = fmt.Sprintf("%s G%d", src.Name, generation)
	}
	child := &entity.Culture{
		Version:           entity.NewVersion(e.newID(), src.UserID, now),
		Name:              name,
		Type:              spec.ToType,
		StrainID:          src.StrainID,
		ParentID:          src.ID,
		Generation:        generation,
		FillVolumeMl:      volume,
		ParentCultureCost: inherited,
		Status:            entity.CultureStatusColonizing,
		LocationID:        src.LocationID,
	}
	child.CostPerMl = cultivation.CostPerMl(child)
	return child
}
