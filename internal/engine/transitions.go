package engine

// transitions lists, per command, the views it may be issued from.
var transitions = map[CommandType][]View{
	CmdSubmitLogin:    {ViewLogin},
	CmdCompleteLogin:  {ViewLogin},
	CmdSelectCategory: {ViewCategories},
	CmdOpenCart:       {ViewCategories, ViewProducts},
	CmdBack:           {ViewProducts, ViewCart, ViewCheckout},
	CmdAddToCart:      {ViewProducts},
	CmdRemoveFromCart: {ViewCart},
	CmdCheckout:       {ViewCart},
	CmdSetPlayerID:    {ViewCheckout},
	CmdConfirmOrder:   {ViewCheckout},
	CmdNewOrder:       {ViewConfirmation},
	CmdLogout:         {ViewCategories, ViewProducts, ViewCart, ViewCheckout, ViewConfirmation},
}

func allowed(v View, cmd CommandType) bool {
	for _, from := range transitions[cmd] {
		if from == v {
			return true
		}
	}
	return false
}
