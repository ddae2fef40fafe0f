package cultivation

import "github.com/jhoicas/cultivo-lab/internal/domain/entity"

// MaxLineageDepth límite de saltos al subir por ParentID (guarda contra ciclos no detectados).
const MaxLineageDepth = 100

// Resolver devuelve la versión vigente del cultivo cuyo ID (de cualquier versión) es id, o nil.
type Resolver func(id string) *entity.Culture

// Lineage ancestros (del padre hacia la raíz) y descendientes (DFS en preorden) de un cultivo.
type Lineage struct {
	Ancestors   []*entity.Culture `json:"ancestors"`
	Descendants []*entity.Culture `json:"descendants"`
}

// ChildIndex índice padre→hijos; la clave es el grupo del padre para que un hijo que apunta a
// una versión reemplazada siga colgando del mismo registro lógico.
type ChildIndex map[string][]*entity.Culture

// IndexChildren construye el índice a partir de los cultivos vigentes.
func IndexChildren(cultures []*entity.Culture, resolve Resolver) ChildIndex {
	idx := make(ChildIndex)
	for _, c := range cultures {
		if c.ParentID == "" {
			continue
		}
		key := c.ParentID
		if p := resolve(c.ParentID); p != nil {
			key = p.GroupID()
		}
		idx[key] = append(idx[key], c)
	}
	return idx
}

// Ancestors sube por ParentID hasta la raíz. Un padre inexistente corta el recorrido;
// un grupo repetido (ciclo) o MaxLineageDepth también.
func Ancestors(start *entity.Culture, resolve Resolver) []*entity.Culture {
	var out []*entity.Culture
	seen := map[string]bool{start.GroupID(): true}
	cur := start
	for depth := 0; depth < MaxLineageDepth && cur.ParentID != ""; depth++ {
		parent := resolve(cur.ParentID)
		if parent == nil || seen[parent.GroupID()] {
			break
		}
		seen[parent.GroupID()] = true
		out = append(out, parent)
		cur = parent
	}
	return out
}

// Descendants recorre en profundidad el índice desde root.
func Descendants(root *entity.Culture, idx ChildIndex) []*entity.Culture {
	var out []*entity.Culture
	seen := map[string]bool{root.GroupID(): true}
	var walk func(groupID string, depth int)
	walk = func(groupID string, depth int) {
		if depth >= MaxLineageDepth {
			return
		}
		for _, child := range idx[groupID] {
			if seen[child.GroupID()] {
				continue
			}
			seen[child.GroupID()] = true
			out = append(out, child)
			walk(child.GroupID(), depth+1)
		}
	}
	walk(root.GroupID(), 0)
	return out
}

// WouldCreateCycle true si asignar parentID a childGroupID cierra un ciclo
// (el padre propuesto es el propio registro o uno de sus descendientes).
func WouldCreateCycle(childGroupID, parentID string, resolve Resolver) bool {
	if parentID == "" {
		return false
	}
	cur := resolve(parentID)
	for depth := 0; cur != nil && depth < MaxLineageDepth; depth++ {
		if cur.GroupID() == childGroupID {
			return true
		}
		if cur.ParentID == "" {
			return false
		}
		cur = resolve(cur.ParentID)
	}
	return false
}
