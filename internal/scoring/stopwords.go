package scoring

// stopwords holds English and Turkish function words excluded from keyword
// sets. Both languages are covered because catalog records arrive in both.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// English
		"the", "and", "for", "are", "but", "not", "you", "all", "can",
		"her", "was", "one", "our", "out", "has", "have", "had", "this",
		"that", "with", "from", "they", "will", "would", "there", "their",
		"what", "about", "which", "when", "were", "been", "into", "than",
		"them", "then", "its", "his", "she", "him", "how", "who", "whom",
		"these", "those", "such", "some", "more", "most", "other", "over",
		"under", "between", "among", "also", "each", "both", "very", "any",
		"does", "did", "done", "being", "upon", "via", "per", "within",
		"without", "during", "through", "after", "before", "while", "where",
		"because", "against", "using", "based", "toward", "towards",
		"study", "analysis", "approach",
		// Turkish
		"bir", "ve", "ile", "için", "bu", "şu", "o", "da", "de", "ki",
		"mi", "mu", "mü", "ne", "ya", "ama", "fakat", "ancak",
		"gibi", "kadar", "daha", "çok", "az", "en", "her", "bazı", "tüm",
		"olan", "olarak", "üzerine", "arasında", "ise", "veya", "hem",
		"değil", "sonra", "önce", "göre", "karşı", "doğru", "üzerinde",
		"altında", "içinde", "dışında", "diğer", "aynı", "böyle", "şöyle",
		"nasıl", "neden", "niçin", "hangi", "kim", "hani", "yani",
		"inceleme", "araştırma", "çalışma",
	} {
		stopwords[w] = struct{}{}
	}
}

// isStopword reports whether a lowercased token is a function word.
func isStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
