package fakersql

// Locale is one entry of the backing store's locale enumeration.
type Locale struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// FakeUser is one generated record.
type FakeUser struct {
	RecordIndex int64   `json:"record_index"`
	FullName    string  `json:"full_name"`
	Gender      string  `json:"gender"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	HeightCM    float64 `json:"height_cm"`
	WeightKG    float64 `json:"weight_kg"`
	EyeColor    string  `json:"eye_color"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	Bio         *string `json:"bio"`
}

// BenchmarkResult is the single row produced by the benchmark procedure.
type BenchmarkResult struct {
	UsersGenerated int64   `json:"users_generated"`
	DurationMS     float64 `json:"duration_ms"`
	UsersPerSecond float64 `json:"users_per_second"`
}

// LocaleFromRow maps a get_available_locales row.
func LocaleFromRow(row ResultRow) Locale {
	return Locale{
		Code: row.String("code"),
		Name: row.String("name"),
	}
}

// LocalesFromRows maps all rows, keeping their order.
func LocalesFromRows(rows ResultRows) []Locale {
	locales := make([]Locale, 0, len(rows))
	for _, row := range rows {
		locales = append(locales, LocaleFromRow(row))
	}

	return locales
}

// FakeUserFromRow maps a generate_fake_users row. Missing columns yield zero values.
func FakeUserFromRow(row ResultRow) FakeUser {
	return FakeUser{
		RecordIndex: row.Int64("record_index"),
		FullName:    row.String("full_name"),
		Gender:      row.String("gender"),
		Address:     row.String("address"),
		Latitude:    row.Float64("latitude"),
		Longitude:   row.Float64("longitude"),
		HeightCM:    row.Float64("height_cm"),
		WeightKG:    row.Float64("weight_kg"),
		EyeColor:    row.String("eye_color"),
		Phone:       row.String("phone"),
		Email:       row.String("email"),
		Bio:         row.OptionalString("bio"),
	}
}

// FakeUsersFromRows maps all rows, keeping their order.
func FakeUsersFromRows(rows ResultRows) []FakeUser {
	users := make([]FakeUser, 0, len(rows))
	for _, row := range rows {
		users = append(users, FakeUserFromRow(row))
	}

	return users
}

// BenchmarkResultFromRows maps the first row; no rows yield a zero result.
func BenchmarkResultFromRows(rows ResultRows) BenchmarkResult {
	if len(rows) == 0 {
		return BenchmarkResult{}
	}

	return BenchmarkResult{
		UsersGenerated: rows[0].Int64("users_generated"),
		DurationMS:     rows[0].Float64("duration_ms"),
		UsersPerSecond: rows[0].Float64("users_per_second"),
	}
}
