package shop

const (
	TopicStockChanged   = "shop.stock.changed"
	TopicInvoiceIssued  = "shop.invoice.issued"
	TopicInvoiceAmended = "shop.invoice.amended"
)

// Partition key = product_id so stock events for one product stay ordered.
func PartitionKey(id string) []byte { return []byte(id) }
