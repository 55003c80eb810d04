package swapplanner

type ModelConfig struct {
	ModelID          string  `env:"MODEL_ID,required"`
	MaxTokens        int32   `env:"MAX_TOKENS,default=500"`
	Temperature      float32 `env:"TEMPERATURE,default=0"`
	TopP             float32 `env:"TOP_P,default=0.9"`
	PricePer1KInput  float64 `env:"PRICE_PER_1K_INPUT,default=0.0004"`
	PricePer1KOutput float64 `env:"PRICE_PER_1K_OUTPUT,default=0.0016"`
}

type PlannerConfig struct {
	OracleBackend      string `env:"ORACLE_BACKEND,default=bedrock"`
	BaseOllamaEndpoint string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	SheetURL           string `env:"SHEET_URL,default=https://docs.google.com/spreadsheets/d/1demo-sheet-id/edit#gid=0"`
	SheetsDir          string `env:"SHEETS_DIR,default=artifacts/sheets"`
	CapacityCell       string `env:"CAPACITY_CELL,default=H5"`
	MaxHistory         int    `env:"MAX_HISTORY,default=20"`
	SlackWebhookURL    string `env:"SLACK_WEBHOOK_URL"`
	SlackChannel       string `env:"SLACK_CHANNEL,default=#qis-planning"`
	Debug              bool   `env:"DEBUG,default=false"`
}

// S3Config locates the two worksheets when the workbook lives in S3.
type S3Config struct {
	Bucket       string `env:"ARTIFACTS_S3_BUCKET,required"`
	FleetKey     string `env:"FLEET_S3_KEY,default=sheets/fleet.csv"`
	ReferenceKey string `env:"REFERENCE_S3_KEY,default=sheets/reference.csv"`
}
