package model

// AccessSet — множество идентификаторов пользователей.
// Порядок элементов сохраняется (порядок выдачи доступа), дубликаты
// не допускаются.
type AccessSet []string

// NewAccessSet создаёт множество из ids, отбрасывая пустые и повторы.
func NewAccessSet(ids ...string) AccessSet {
	s := make(AccessSet, 0, len(ids))
	for _, id := range ids {
		s, _ = s.Add(id)
	}
	return s
}

// Contains проверяет наличие id.
func (s AccessSet) Contains(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add возвращает множество с добавленным id и признак изменения.
// Исходный срез не модифицируется.
func (s AccessSet) Add(id string) (AccessSet, bool) {
	if id == "" || s.Contains(id) {
		return s, false
	}
	out := make(AccessSet, len(s), len(s)+1)
	copy(out, s)
	return append(out, id), true
}

// Remove возвращает множество без id и признак изменения.
func (s AccessSet) Remove(id string) (AccessSet, bool) {
	if !s.Contains(id) {
		return s, false
	}
	out := make(AccessSet, 0, len(s)-1)
	for _, v := range s {
		if v != id {
			out = append(out, v)
		}
	}
	return out, true
}

// Without возвращает элементы множества, кроме id.
func (s AccessSet) Without(id string) []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Len — количество элементов.
func (s AccessSet) Len() int {
	return len(s)
}
