package categorization

import "github.com/FACorreiaa/smart-finance-import/internal/domain/transaction"

// KeywordSet binds a category to the lower-case substrings that select it.
type KeywordSet struct {
	Category transaction.Category
	Keywords []string
}

// DefaultKeywords is the built-in vocabulary table. Order matters: when a
// description matches keywords of several categories the earliest set wins.
var DefaultKeywords = []KeywordSet{
	{transaction.CategoryFood, []string{
		"esselunga", "coop", "conad", "carrefour", "lidl", "aldi", "eurospin", "pam ", "despar",
		"supermercato", "supermarket", "grocery", "tesco", "sainsbury", "continente", "pingo doce",
		"restaurant", "ristorante", "trattoria", "pizzeria", "mcdonald", "burger king", "kfc",
		"starbucks", "cafe", "caffe", "caffè", "bakery", "panetteria", "deliveroo", "just eat",
		"glovo", "uber eats", "food",
	}},
	{transaction.CategoryTransport, []string{
		"uber", "lyft", "bolt", "taxi", "trenitalia", "italo", "atm milano", "metro", "bus ",
		"parking", "parcheggio", "autostrade", "telepass", "fuel", "benzina", "carburante",
		"enilive", "eni station", "q8", "shell", "tamoil", "car sharing", "enjoy", "free now",
	}},
	{transaction.CategoryEntertainment, []string{
		"netflix", "spotify", "disney", "prime video", "dazn", "sky ", "now tv", "cinema",
		"theatre", "teatro", "concert", "ticketone", "ticketmaster", "steam", "playstation",
		"xbox", "nintendo", "twitch", "youtube premium",
	}},
	{transaction.CategoryBills, []string{
		"enel energia", "edison", "a2a", "acea", "bolletta", "utility", "electric",
		"gas ", "water", "acqua", "tim ", "vodafone", "windtre", "iliad", "fastweb", "telecom",
		"internet", "insurance", "assicurazione", "rent payment", "affitto", "condominio", "mortgage", "mutuo",
	}},
	{transaction.CategoryHealthcare, []string{
		"farmacia", "pharmacy", "hospital", "ospedale", "clinic", "clinica", "medico", "doctor",
		"dentist", "health", "salute", "ticket sanitario",
	}},
	{transaction.CategoryShopping, []string{
		"amazon", "zalando", "ebay", "ikea", "decathlon", "h&m", "zara", "primark", "mediaworld",
		"unieuro", "euronics", "apple store", "shein", "aliexpress", "shopping",
	}},
	{transaction.CategoryInvestments, []string{
		"degiro", "directa", "fineco", "etoro", "trade republic", "scalable", "interactive brokers",
		"acquisto etf", "invest", "crypto", "coinbase", "binance", "bitcoin",
	}},
	{transaction.CategoryEducation, []string{
		"university", "universit", "school", "scuola", "tuition", "udemy", "coursera",
		"libreria", "bookstore", "feltrinelli", "course",
	}},
	{transaction.CategoryTravel, []string{
		"ryanair", "easyjet", "alitalia", "ita airways", "lufthansa", "airbnb", "booking.com",
		"expedia", "hotel", "albergo", "hostel", "flight", "travel", "viaggi",
	}},
	{transaction.CategoryIncome, []string{
		"stipendio", "salary", "payroll", "bonifico in entrata", "accredito", "rimborso",
		"refund", "dividend", "dividendo", "interest", "interessi", "pension", "pensione",
	}},
}
