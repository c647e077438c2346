package testing

// Monarch documents as returned in the GraphQL data member.
const (
	AccountsDoc = `{"accounts":[
  {"id":42,"displayName":"Sapphire Card","type":{"name":"credit_card"},"subtype":{"name":"ccAsset"}},
  {"id":"43","displayName":"Checking","type":{"name":"depository"},"subtype":{"name":"checking"}},
  {"id":"44","displayName":"Mortgage","type":{"name":"loan"},"subtype":{"name":"mortgage"}}
]}`

	CategoriesDoc = `{"categories":[
  {"id":"3","name":"Groceries"},
  {"id":"4","name":"Paychecks"}
]}`

	TagsDoc = `{"tags":[
  {"id":"11","name":"vacation"},
  {"id":"12","name":"reimbursable"}
]}`

	TransactionsDoc = `{"allTransactions":{"totalCount":3,"results":[
  {"id":"7","amount":-50.00,"date":"2024-01-05","plaidName":"WHOLE FOODS #123","notes":null,
   "category":{"id":"3"},"merchant":{"name":"Whole Foods"},"account":{"displayName":"Checking"},
   "tags":[{"name":"vacation"}]},
  {"id":"8","amount":1200,"date":"2024-01-15","plaidName":"ACME PAYROLL","notes":"",
   "category":{"id":"4"},"merchant":{"name":"Acme Corp"},"account":{"displayName":"Checking"},
   "tags":[]},
  {"id":"9","amount":-4.25,"date":"2024-01-16","plaidName":"COFFEE","notes":null,
   "category":{"id":"3"},"merchant":{"name":"Blue Bottle"},"account":{"displayName":"Sapphire Card"},
   "tags":[{"name":"reimbursable"}]}
]}}`
)

// MonarchDocs maps GraphQL operation names to the fixture documents.
func MonarchDocs() map[string]string {
	return map[string]string{
		"GetAccounts":                 AccountsDoc,
		"GetCategories":               CategoriesDoc,
		"GetHouseholdTransactionTags": TagsDoc,
		"GetTransactionsList":         TransactionsDoc,
	}
}
