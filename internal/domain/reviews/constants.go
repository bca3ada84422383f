package reviews

const (
	StepCreateReview  = "create_review"
	StepUpdateReview  = "update_review"
	StepLoadEntries   = "load_entries"
	StepDeleteEntries = "delete_entries"
	StepAddEntries    = "add_entries"

	ModeCreate = "create"
	ModeEdit   = "edit"

	MaxRating = 5
)
