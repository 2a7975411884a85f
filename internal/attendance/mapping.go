package attendance

// Канонические поля записи о посещаемости.
const (
	FieldSubject     = "subject"
	FieldSubjectCode = "subject_code"
	FieldPresent     = "present"
	FieldAbsent      = "absent"
	FieldTotal       = "total"
	FieldPercentage  = "percentage"
	FieldFaculty     = "faculty"
	FieldTerm        = "term"
)

// CanonicalFields возвращает список канонических полей в фиксированном порядке.
func CanonicalFields() []string {
	return []string{
		FieldSubject,
		FieldSubjectCode,
		FieldPresent,
		FieldAbsent,
		FieldTotal,
		FieldPercentage,
		FieldFaculty,
		FieldTerm,
	}
}

// FieldMapping - каноническое поле -> имя ключа в ответе портала. Может быть частичным.
type FieldMapping map[string]string

func (m FieldMapping) Clone() FieldMapping {
	out := make(FieldMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DefaultFieldMapping возвращает новую копию встроенных имён ключей.
// Каждый вызов отдаёт независимый объект, общего изменяемого состояния нет.
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		FieldSubject:     "subject",
		FieldSubjectCode: "subjectCode",
		FieldPresent:     "presentCount",
		FieldAbsent:      "absentCount",
		FieldTotal:       "session",
		FieldPercentage:  "percentage",
		FieldFaculty:     "facultName",
		FieldTerm:        "termName",
	}
}
