//go:build go1.18

package cache

import (
	"testing"
)

// Fuzz a sequence of insert/delete operations against a map model.
// Each byte pair encodes (op, id); ids are folded into a small space so that
// inserts and deletes collide often.
func FuzzStore_Ops(f *testing.F) {
	f.Add([]byte{0, 1, 0, 2, 1, 1, 0, 1})
	f.Add([]byte{0, 0, 0, 1, 0, 2, 0, 3, 0, 4, 1, 2, 1, 3})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, ops []byte) {
		s := NewStore(1)
		model := map[ObjID]*Object{}
		for i := 0; i+1 < len(ops); i += 2 {
			id := ObjID(ops[i+1] % 32)
			if ops[i]%2 == 0 {
				if _, ok := model[id]; ok {
					continue
				}
				model[id] = s.Insert(&Request{ID: id, Size: int64(ops[i+1])})
			} else {
				o, ok := model[id]
				if !ok {
					continue
				}
				s.Delete(o)
				delete(model, id)
			}
		}
		if s.Len() != len(model) {
			t.Fatalf("store len %d, model %d", s.Len(), len(model))
		}
		for id, want := range model {
			if got, ok := s.Find(id); !ok || got != want {
				t.Fatalf("id %d lost", id)
			}
		}
		s.ForEach(func(o *Object) bool {
			if model[o.ID] != o {
				t.Fatalf("store has stray record %d", o.ID)
			}
			return true
		})
	})
}
