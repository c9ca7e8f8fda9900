package command

// Inventory commands
type AddItem struct {
	Name     string `json:"item_name"`
	Quantity int    `json:"quantity"`
	Code     string `json:"code"`
}

type RemoveItem struct {
	Name     string `json:"item_name"`
	Quantity int    `json:"quantity"`
	PIN      string `json:"pin"`
}

type UpdateItem struct {
	Name     string   `json:"item_name"`
	Quantity *int     `json:"quantity"`
	Code     *string  `json:"code"`
	Price    *float64 `json:"price"`
}

type ScanCode struct {
	Code string `json:"code"`
	PIN  string `json:"pin"`
}

// Product code commands
type AddProductCode struct {
	Code    int     `json:"product_code"`
	Name    string  `json:"product_name"`
	Price   float64 `json:"price"`
	Barcode string  `json:"code"`
}

type RemoveProductCode struct {
	Code int `json:"product_code"`
}

// Self-service commands
type ConsumeProducts struct {
	PIN      string `json:"pin"`
	Products []int  `json:"products"`
}

type VerifyPIN struct {
	PIN string `json:"pin"`
}

type ClearRoomConsumption struct {
	Room string `json:"room"`
}

// Access commands
type IngestReservation struct {
	SensorID string   `json:"sensor_id"`
	Room     string   `json:"room"`
	CardKeys []string `json:"card_keys"`
	Checkin  string   `json:"checkin"`
	Checkout string   `json:"checkout"`
	Guest    string   `json:"guest"`
}

type RecordRecentAccess struct {
	PIN  string `json:"pin"`
	Room string `json:"room"`
}
